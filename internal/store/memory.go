package store

import (
	"context"
	"sync"

	"rxremind/internal/model"
)

// Memory keeps every collection in process memory. Loads and saves copy the
// slices so callers can never alias stored state.
type Memory struct {
	mu            sync.RWMutex
	prescriptions []model.Prescription
	reminders     []model.Reminder
	refills       []model.RefillReminder
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) LoadPrescriptions(_ context.Context) ([]model.Prescription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return clonePrescriptions(m.prescriptions), nil
}

func (m *Memory) SavePrescriptions(_ context.Context, ps []model.Prescription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prescriptions = clonePrescriptions(ps)
	return nil
}

func (m *Memory) LoadReminders(_ context.Context) ([]model.Reminder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneReminders(m.reminders), nil
}

func (m *Memory) SaveReminders(_ context.Context, rs []model.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reminders = cloneReminders(rs)
	return nil
}

func (m *Memory) LoadRefills(_ context.Context) ([]model.RefillReminder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.RefillReminder{}, m.refills...), nil
}

func (m *Memory) SaveRefills(_ context.Context, rs []model.RefillReminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refills = append([]model.RefillReminder{}, rs...)
	return nil
}

func clonePrescriptions(in []model.Prescription) []model.Prescription {
	out := make([]model.Prescription, 0, len(in))
	for _, p := range in {
		p.Medications = append([]model.Medication(nil), p.Medications...)
		out = append(out, p)
	}
	return out
}

func cloneReminders(in []model.Reminder) []model.Reminder {
	out := make([]model.Reminder, 0, len(in))
	for _, r := range in {
		r.Times = append(model.ScheduleTimes(nil), r.Times...)
		out = append(out, r)
	}
	return out
}
