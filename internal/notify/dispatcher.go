package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "rxremind/internal/log"
	"rxremind/internal/model"
)

const (
	DefaultSpec       = "* * * * *"
	DefaultRefillTime = "09:00"

	minuteKey = "2006-01-02T15:04"
	dayKey    = "2006-01-02"
)

// Source supplies what is due at a given moment. *reminder.Manager
// satisfies it.
type Source interface {
	DueReminders(ctx context.Context, now time.Time) ([]model.Reminder, error)
	DueRefills(ctx context.Context, day time.Time) ([]model.RefillReminder, error)
}

type Options struct {
	// Spec is a 5-field cron expression for the polling loop.
	Spec string
	// RefillTime is the "HH:MM" at which refill reminders fire on their date.
	RefillTime string
	// Now overrides the clock used by scheduled ticks.
	Now func() time.Time
}

// Dispatcher polls a Source and emits notifications. Each dose reminder fires
// at most once per wall-clock minute and each refill at most once per day,
// however often Tick runs.
type Dispatcher struct {
	src      Source
	notifier Notifier
	opts     Options

	mu    sync.Mutex
	fired map[string]time.Time
}

func NewDispatcher(src Source, notifier Notifier, opts Options) *Dispatcher {
	if opts.Spec == "" {
		opts.Spec = DefaultSpec
	}
	if opts.RefillTime == "" {
		opts.RefillTime = DefaultRefillTime
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Dispatcher{
		src:      src,
		notifier: notifier,
		opts:     opts,
		fired:    make(map[string]time.Time),
	}
}

// Tick checks what is due at now and notifies. It returns the number of
// notifications sent.
func (d *Dispatcher) Tick(ctx context.Context, now time.Time) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.prune(now)
	sent := 0

	due, err := d.src.DueReminders(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("due reminders: %w", err)
	}
	for _, r := range due {
		n := Notification{
			Kind:  KindDose,
			Key:   r.ID,
			Title: "Time for your medication: " + r.MedicationName,
			Body:  "From prescription: " + r.PrescriptionName + ". Don't forget!",
			At:    now,
		}
		if d.send(ctx, n) {
			sent++
		}
	}

	// HH:MM compares lexically; the first tick at or after RefillTime fires
	// and the per-day key keeps later ticks quiet
	if now.Format("15:04") >= d.opts.RefillTime {
		refills, err := d.src.DueRefills(ctx, now)
		if err != nil {
			return sent, fmt.Errorf("due refills: %w", err)
		}
		for _, rr := range refills {
			n := Notification{
				Kind:  KindRefill,
				Key:   rr.ID,
				Title: "Time to refill: " + rr.PrescriptionName,
				Body:  "Your medication for " + rr.PrescriptionName + " is about to run out.",
				At:    now,
			}
			if d.send(ctx, n) {
				sent++
			}
		}
	}

	return sent, nil
}

func (d *Dispatcher) send(ctx context.Context, n Notification) bool {
	window := minuteKey
	if n.Kind == KindRefill {
		window = dayKey
	}
	key := string(n.Kind) + ":" + n.Key + ":" + n.At.Format(window)
	if _, ok := d.fired[key]; ok {
		return false
	}
	if err := d.notifier.Notify(ctx, n); err != nil {
		// not marked as fired, so the next tick in the same minute retries
		appLog.Error("notify failed", err, "kind", string(n.Kind), "key", n.Key)
		return false
	}
	d.fired[key] = n.At
	return true
}

func (d *Dispatcher) prune(now time.Time) {
	cutoff := now.Add(-24 * time.Hour)
	for k, at := range d.fired {
		if at.Before(cutoff) {
			delete(d.fired, k)
		}
	}
}

// Start runs Tick on the configured cron schedule until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) error {
	logger := cronLogger{}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	_, err := c.AddFunc(d.opts.Spec, func() {
		n, err := d.Tick(ctx, d.opts.Now())
		if err != nil {
			appLog.Error("dispatch tick failed", err)
			return
		}
		if n > 0 {
			appLog.Debug("dispatch tick", "sent", n)
		}
	})
	if err != nil {
		return fmt.Errorf("dispatch: invalid schedule %q: %w", d.opts.Spec, err)
	}

	c.Start()
	appLog.Info("dispatcher started", "schedule", d.opts.Spec, "refill_time", d.opts.RefillTime)

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		appLog.Info("dispatcher stopped")
	}()
	return nil
}

// cronLogger adapts cron's logger to the application log.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...interface{}) {
	appLog.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...interface{}) {
	appLog.Error("cron: "+msg, err, kv...)
}
