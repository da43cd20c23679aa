package notify

import (
	"context"
	"errors"
	"time"

	appLog "rxremind/internal/log"
)

type Kind string

const (
	KindDose   Kind = "dose"
	KindRefill Kind = "refill"
)

// Notification is a single user-visible alert.
type Notification struct {
	Kind  Kind
	Key   string // reminder or refill ID
	Title string
	Body  string
	At    time.Time
}

// Notifier delivers notifications. Delivery to devices is out of scope for
// rxremind; implementations can bridge to whatever the deployment uses.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the application log.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n Notification) error {
	appLog.Info("notification",
		"kind", string(n.Kind),
		"key", n.Key,
		"title", n.Title,
		"body", n.Body,
		"at", n.At.Format("2006-01-02 15:04"),
	)
	return nil
}

// MultiNotifier fans a notification out to every notifier and joins errors.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, nt := range m {
		if err := nt.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
