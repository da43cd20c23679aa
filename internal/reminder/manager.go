// Package reminder owns the lifecycle of saved prescriptions, per-medication
// dose reminders and per-prescription refill reminders. Persistence is
// delegated to a Store so the parsing core stays storage-agnostic.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	appLog "rxremind/internal/log"
	"rxremind/internal/model"
	"rxremind/internal/refill"
	"rxremind/internal/schedule"
)

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrPrescriptionNotFound = errors.New("prescription not found")
	ErrMedicationNotFound   = errors.New("medication not found on prescription")
	ErrReminderExists       = errors.New("reminder already exists")
	ErrReminderNotFound     = errors.New("reminder not found")
	ErrRefillNotFound       = errors.New("refill reminder not found")
	ErrNoSchedule           = errors.New("could not determine a schedule for this frequency")
	ErrNoRefillDate         = errors.New("could not determine a refill date")
)

const untitled = "Untitled"

// Store persists whole collections. Implementations need not be safe for
// concurrent use; the Manager serializes access.
type Store interface {
	LoadPrescriptions(ctx context.Context) ([]model.Prescription, error)
	SavePrescriptions(ctx context.Context, ps []model.Prescription) error
	LoadReminders(ctx context.Context) ([]model.Reminder, error)
	SaveReminders(ctx context.Context, rs []model.Reminder) error
	LoadRefills(ctx context.Context) ([]model.RefillReminder, error)
	SaveRefills(ctx context.Context, rs []model.RefillReminder) error
}

type Manager struct {
	mu    sync.Mutex
	store Store
	now   func() time.Time
	newID func() string
}

func NewManager(store Store) *Manager {
	return &Manager{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// SaveResult reports what SavePrescription did.
type SaveResult struct {
	Prescription model.Prescription
	Refill       *model.RefillReminder
	// RefillCreated is false when a refill reminder already existed or none
	// could be derived (see RefillErr).
	RefillCreated bool
	RefillErr     error
}

// SavePrescription inserts or replaces a prescription by ID and then
// schedules its refill reminder. A prescription without an ID gets a new one.
func (m *Manager) SavePrescription(ctx context.Context, p model.Prescription) (SaveResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		p.ID = m.newID()
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		p.Name = untitled
	}

	all, err := m.store.LoadPrescriptions(ctx)
	if err != nil {
		return SaveResult{}, fmt.Errorf("load prescriptions: %w", err)
	}
	all = upsertPrescription(all, p)
	if err := m.store.SavePrescriptions(ctx, all); err != nil {
		return SaveResult{}, fmt.Errorf("save prescriptions: %w", err)
	}
	appLog.Info("prescription saved", "id", p.ID, "name", p.Name, "medications", len(p.Medications))

	res := SaveResult{Prescription: p}
	rr, created, err := m.scheduleRefill(ctx, p)
	switch {
	case errors.Is(err, ErrNoRefillDate):
		res.RefillErr = err
	case err != nil:
		return res, err
	default:
		res.Refill = &rr
		res.RefillCreated = created
	}
	return res, nil
}

func upsertPrescription(all []model.Prescription, p model.Prescription) []model.Prescription {
	out := make([]model.Prescription, 0, len(all)+1)
	replaced := false
	for _, cur := range all {
		if cur.ID == p.ID {
			out = append(out, p)
			replaced = true
			continue
		}
		out = append(out, cur)
	}
	if !replaced {
		out = append(out, p)
	}
	return out
}

func (m *Manager) Prescriptions(ctx context.Context) ([]model.Prescription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.LoadPrescriptions(ctx)
}

func (m *Manager) Prescription(ctx context.Context, id string) (model.Prescription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findPrescription(ctx, id)
}

func (m *Manager) findPrescription(ctx context.Context, id string) (model.Prescription, error) {
	all, err := m.store.LoadPrescriptions(ctx)
	if err != nil {
		return model.Prescription{}, fmt.Errorf("load prescriptions: %w", err)
	}
	for _, p := range all {
		if p.ID == id {
			return p, nil
		}
	}
	return model.Prescription{}, ErrPrescriptionNotFound
}

// RenamePrescription changes only the display name. Existing reminders keep
// the name they were created with.
func (m *Manager) RenamePrescription(ctx context.Context, id, name string) (model.Prescription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return model.Prescription{}, ErrInvalidInput
	}
	p, err := m.findPrescription(ctx, id)
	if err != nil {
		return model.Prescription{}, err
	}
	p.Name = name

	all, err := m.store.LoadPrescriptions(ctx)
	if err != nil {
		return model.Prescription{}, fmt.Errorf("load prescriptions: %w", err)
	}
	if err := m.store.SavePrescriptions(ctx, upsertPrescription(all, p)); err != nil {
		return model.Prescription{}, fmt.Errorf("save prescriptions: %w", err)
	}
	return p, nil
}

// DeletePrescription removes a prescription. Its reminders are left alone;
// users delete those explicitly.
func (m *Manager) DeletePrescription(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	all, err := m.store.LoadPrescriptions(ctx)
	if err != nil {
		return fmt.Errorf("load prescriptions: %w", err)
	}
	out := make([]model.Prescription, 0, len(all))
	for _, p := range all {
		if p.ID != id {
			out = append(out, p)
		}
	}
	if len(out) == len(all) {
		return ErrPrescriptionNotFound
	}
	if err := m.store.SavePrescriptions(ctx, out); err != nil {
		return fmt.Errorf("save prescriptions: %w", err)
	}
	appLog.Info("prescription deleted", "id", id)
	return nil
}

// SetReminder creates a dose reminder for one medication of a saved
// prescription. It fails with ErrNoSchedule when the medication's frequency
// matches no known notation.
func (m *Manager) SetReminder(ctx context.Context, prescriptionID, medicationName string) (model.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if strings.TrimSpace(prescriptionID) == "" {
		return model.Reminder{}, ErrPrescriptionNotFound
	}
	p, err := m.findPrescription(ctx, prescriptionID)
	if err != nil {
		return model.Reminder{}, err
	}
	med, ok := p.Medication(medicationName)
	if !ok {
		return model.Reminder{}, ErrMedicationNotFound
	}

	existing, err := m.store.LoadReminders(ctx)
	if err != nil {
		return model.Reminder{}, fmt.Errorf("load reminders: %w", err)
	}
	id := model.ReminderID(p.ID, med.Name)
	for _, r := range existing {
		if r.ID == id {
			return model.Reminder{}, ErrReminderExists
		}
	}

	times := schedule.ParseFrequency(med.Frequency)
	if len(times) == 0 {
		appLog.Debug("no schedule for frequency", "frequency", med.Frequency, "medication", med.Name)
		return model.Reminder{}, ErrNoSchedule
	}

	r := model.Reminder{
		ID:               id,
		PrescriptionID:   p.ID,
		MedicationName:   med.Name,
		PrescriptionName: p.Name,
		Frequency:        med.Frequency,
		Times:            times,
	}
	if err := m.store.SaveReminders(ctx, append(existing, r)); err != nil {
		return model.Reminder{}, fmt.Errorf("save reminders: %w", err)
	}
	appLog.Info("reminder set", "id", r.ID, "times", strings.Join(r.Times, ","))
	return r, nil
}

func (m *Manager) DeleteReminder(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	all, err := m.store.LoadReminders(ctx)
	if err != nil {
		return fmt.Errorf("load reminders: %w", err)
	}
	out := make([]model.Reminder, 0, len(all))
	for _, r := range all {
		if r.ID != id {
			out = append(out, r)
		}
	}
	if len(out) == len(all) {
		return ErrReminderNotFound
	}
	if err := m.store.SaveReminders(ctx, out); err != nil {
		return fmt.Errorf("save reminders: %w", err)
	}
	appLog.Info("reminder removed", "id", id)
	return nil
}

// Reminders returns stored reminders, skipping entries whose times are
// malformed.
func (m *Manager) Reminders(ctx context.Context) ([]model.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.validReminders(ctx)
}

func (m *Manager) validReminders(ctx context.Context) ([]model.Reminder, error) {
	all, err := m.store.LoadReminders(ctx)
	if err != nil {
		return nil, fmt.Errorf("load reminders: %w", err)
	}
	out := make([]model.Reminder, 0, len(all))
	for _, r := range all {
		if len(r.Times) == 0 || !schedule.ValidTimes(r.Times) {
			appLog.Warn("skipping reminder with malformed times", "id", r.ID)
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// ScheduleRefill creates the refill reminder for p unless one already exists
// for the same prescription ID. created reports whether a new one was stored.
func (m *Manager) ScheduleRefill(ctx context.Context, p model.Prescription) (model.RefillReminder, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scheduleRefill(ctx, p)
}

func (m *Manager) scheduleRefill(ctx context.Context, p model.Prescription) (model.RefillReminder, bool, error) {
	if p.ID == "" {
		return model.RefillReminder{}, false, ErrPrescriptionNotFound
	}

	existing, err := m.store.LoadRefills(ctx)
	if err != nil {
		return model.RefillReminder{}, false, fmt.Errorf("load refills: %w", err)
	}
	for _, rr := range existing {
		if rr.ID == p.ID {
			return rr, false, nil
		}
	}

	date, ok := refill.ResolveRefillDate(p.Date, p.Medications)
	if !ok {
		appLog.Debug("no refill date", "prescription", p.ID, "date", p.Date)
		return model.RefillReminder{}, false, ErrNoRefillDate
	}

	name := p.Name
	if name == "" {
		name = untitled
	}
	rr := model.RefillReminder{
		ID:               p.ID,
		PrescriptionName: name,
		RefillDate:       date,
	}
	if err := m.store.SaveRefills(ctx, append(existing, rr)); err != nil {
		return model.RefillReminder{}, false, fmt.Errorf("save refills: %w", err)
	}
	appLog.Info("refill reminder scheduled", "prescription", p.ID, "refill_date", date)
	return rr, true, nil
}

func (m *Manager) DeleteRefill(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	all, err := m.store.LoadRefills(ctx)
	if err != nil {
		return fmt.Errorf("load refills: %w", err)
	}
	out := make([]model.RefillReminder, 0, len(all))
	for _, rr := range all {
		if rr.ID != id {
			out = append(out, rr)
		}
	}
	if len(out) == len(all) {
		return ErrRefillNotFound
	}
	if err := m.store.SaveRefills(ctx, out); err != nil {
		return fmt.Errorf("save refills: %w", err)
	}
	appLog.Info("refill reminder removed", "id", id)
	return nil
}

// Refills returns refill reminders ordered by date, then ID.
func (m *Manager) Refills(ctx context.Context) ([]model.RefillReminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all, err := m.store.LoadRefills(ctx)
	if err != nil {
		return nil, fmt.Errorf("load refills: %w", err)
	}
	out := append([]model.RefillReminder(nil), all...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RefillDate != out[j].RefillDate {
			return out[i].RefillDate < out[j].RefillDate
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// DueReminders returns reminders scheduled for the wall-clock minute of now.
func (m *Manager) DueReminders(ctx context.Context, now time.Time) ([]model.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all, err := m.validReminders(ctx)
	if err != nil {
		return nil, err
	}
	hhmm := now.Format("15:04")
	due := make([]model.Reminder, 0)
	for _, r := range all {
		if r.Times.Contains(hhmm) {
			due = append(due, r)
		}
	}
	return due, nil
}

// DueRefills returns refill reminders falling on the calendar day of day.
func (m *Manager) DueRefills(ctx context.Context, day time.Time) ([]model.RefillReminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all, err := m.store.LoadRefills(ctx)
	if err != nil {
		return nil, fmt.Errorf("load refills: %w", err)
	}
	date := day.Format(refill.DateLayout)
	due := make([]model.RefillReminder, 0)
	for _, rr := range all {
		if rr.RefillDate == date {
			due = append(due, rr)
		}
	}
	return due, nil
}

// SetClock replaces the clock used for Now. Intended for tests and replays.
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Now returns the manager's clock; the dispatcher and HTTP layer use it so
// tests can pin time in one place.
func (m *Manager) Now() time.Time {
	m.mu.Lock()
	now := m.now
	m.mu.Unlock()
	return now()
}
