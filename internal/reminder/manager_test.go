package reminder

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"rxremind/internal/model"
	"rxremind/internal/store"
)

// countingStore wraps a Memory store and counts refill saves.
type countingStore struct {
	*store.Memory
	refillSaves int
	failLoad    error
}

func (s *countingStore) SaveRefills(ctx context.Context, rs []model.RefillReminder) error {
	s.refillSaves++
	return s.Memory.SaveRefills(ctx, rs)
}

func (s *countingStore) LoadPrescriptions(ctx context.Context) ([]model.Prescription, error) {
	if s.failLoad != nil {
		return nil, s.failLoad
	}
	return s.Memory.LoadPrescriptions(ctx)
}

func newTestManager() (*Manager, *countingStore) {
	s := &countingStore{Memory: store.NewMemory()}
	m := NewManager(s)
	m.newID = func() string { return "rx-generated" }
	return m, s
}

func fever() model.Prescription {
	return model.Prescription{
		ID:   "rx-1",
		Name: "Fever",
		Date: "01/06/2024",
		Medications: []model.Medication{
			{Name: "Paracetamol", Dosage: "500mg", Frequency: "1-0-1", Duration: "5 days"},
			{Name: "Azithromycin", Dosage: "250mg", Frequency: "OD", Duration: "2 weeks"},
			{Name: "Vitamin C", Dosage: "1 tab", Frequency: "TDS", Duration: "N/A"},
		},
	}
}

func TestSavePrescription_SchedulesRefillOnce(t *testing.T) {
	m, s := newTestManager()
	ctx := context.Background()

	res, err := m.SavePrescription(ctx, fever())
	if err != nil {
		t.Fatalf("SavePrescription failed: %v", err)
	}
	if !res.RefillCreated || res.Refill == nil {
		t.Fatalf("expected refill to be created, got %+v", res)
	}
	if res.Refill.RefillDate != "2024-06-14" {
		t.Errorf("RefillDate = %s, want 2024-06-14", res.Refill.RefillDate)
	}

	res2, err := m.SavePrescription(ctx, fever())
	if err != nil {
		t.Fatalf("second SavePrescription failed: %v", err)
	}
	if res2.RefillCreated {
		t.Error("second save must not create another refill reminder")
	}
	if res2.Refill == nil || res2.Refill.RefillDate != "2024-06-14" {
		t.Errorf("second save should report the existing refill, got %+v", res2.Refill)
	}

	refills, _ := m.Refills(ctx)
	if len(refills) != 1 {
		t.Fatalf("len(refills) = %d, want 1", len(refills))
	}
	if s.refillSaves != 1 {
		t.Errorf("refill saves = %d, want 1", s.refillSaves)
	}

	ps, _ := m.Prescriptions(ctx)
	if len(ps) != 1 {
		t.Errorf("len(prescriptions) = %d, want 1 (upsert by id)", len(ps))
	}
}

func TestSavePrescription_Defaults(t *testing.T) {
	m, _ := newTestManager()
	p := fever()
	p.ID = ""
	p.Name = "  "

	res, err := m.SavePrescription(context.Background(), p)
	if err != nil {
		t.Fatalf("SavePrescription failed: %v", err)
	}
	if res.Prescription.ID != "rx-generated" {
		t.Errorf("ID = %q, want generated id", res.Prescription.ID)
	}
	if res.Prescription.Name != "Untitled" {
		t.Errorf("Name = %q, want Untitled", res.Prescription.Name)
	}
	if res.Refill == nil || res.Refill.PrescriptionName != "Untitled" {
		t.Errorf("refill = %+v, want name Untitled", res.Refill)
	}
}

func TestSavePrescription_NoRefillDate(t *testing.T) {
	m, s := newTestManager()
	p := fever()
	p.Date = "sometime in May"

	res, err := m.SavePrescription(context.Background(), p)
	if err != nil {
		t.Fatalf("SavePrescription failed: %v", err)
	}
	if !errors.Is(res.RefillErr, ErrNoRefillDate) {
		t.Errorf("RefillErr = %v, want ErrNoRefillDate", res.RefillErr)
	}
	if res.Refill != nil || s.refillSaves != 0 {
		t.Errorf("no refill should be stored, got %+v (saves=%d)", res.Refill, s.refillSaves)
	}
}

func TestSavePrescription_StoreError(t *testing.T) {
	m, s := newTestManager()
	boom := errors.New("disk on fire")
	s.failLoad = boom

	_, err := m.SavePrescription(context.Background(), fever())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
}

func TestSetReminder(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()
	if _, err := m.SavePrescription(ctx, fever()); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		rxID    string
		med     string
		want    model.ScheduleTimes
		wantErr error
	}{
		{"twice daily", "rx-1", "Paracetamol", model.ScheduleTimes{"09:00", "21:00"}, nil},
		{"already exists", "rx-1", "Paracetamol", nil, ErrReminderExists},
		{"thrice daily", "rx-1", "Vitamin C", model.ScheduleTimes{"09:00", "13:00", "21:00"}, nil},
		{"unknown frequency", "rx-1", "Azithromycin", nil, ErrNoSchedule},
		{"unknown medication", "rx-1", "Ibuprofen", nil, ErrMedicationNotFound},
		{"unsaved prescription", "", "Paracetamol", nil, ErrPrescriptionNotFound},
		{"missing prescription", "rx-404", "Paracetamol", nil, ErrPrescriptionNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := m.SetReminder(ctx, tt.rxID, tt.med)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("SetReminder err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if !reflect.DeepEqual(r.Times, tt.want) {
				t.Errorf("Times = %v, want %v", r.Times, tt.want)
			}
			if r.ID != tt.rxID+"-"+tt.med || r.PrescriptionName != "Fever" {
				t.Errorf("unexpected reminder %+v", r)
			}
		})
	}

	rs, _ := m.Reminders(ctx)
	if len(rs) != 2 {
		t.Errorf("len(reminders) = %d, want 2", len(rs))
	}
}

func TestDeleteReminder(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()
	_, _ = m.SavePrescription(ctx, fever())
	r, err := m.SetReminder(ctx, "rx-1", "Paracetamol")
	if err != nil {
		t.Fatal(err)
	}

	if err := m.DeleteReminder(ctx, r.ID); err != nil {
		t.Fatalf("DeleteReminder failed: %v", err)
	}
	if err := m.DeleteReminder(ctx, r.ID); !errors.Is(err, ErrReminderNotFound) {
		t.Errorf("second delete err = %v, want ErrReminderNotFound", err)
	}

	// deleting frees the id for a new reminder
	if _, err := m.SetReminder(ctx, "rx-1", "Paracetamol"); err != nil {
		t.Errorf("SetReminder after delete failed: %v", err)
	}
}

func TestRefillLifecycle(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	a := fever()
	b := fever()
	b.ID = "rx-2"
	b.Name = "Cough"
	b.Date = "2024-03-10"
	b.Medications = []model.Medication{{Name: "Syrup", Duration: "1 month"}}

	_, _ = m.SavePrescription(ctx, a)
	_, _ = m.SavePrescription(ctx, b)

	refills, err := m.Refills(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(refills) != 2 || refills[0].ID != "rx-2" || refills[0].RefillDate != "2024-04-08" {
		t.Fatalf("refills not sorted by date: %+v", refills)
	}

	due, _ := m.DueRefills(ctx, time.Date(2024, 4, 8, 15, 0, 0, 0, time.Local))
	if len(due) != 1 || due[0].ID != "rx-2" {
		t.Errorf("DueRefills = %+v, want rx-2", due)
	}

	if err := m.DeleteRefill(ctx, "rx-2"); err != nil {
		t.Fatalf("DeleteRefill failed: %v", err)
	}
	if err := m.DeleteRefill(ctx, "rx-2"); !errors.Is(err, ErrRefillNotFound) {
		t.Errorf("err = %v, want ErrRefillNotFound", err)
	}

	// once deleted, saving again schedules a fresh one
	res, _ := m.SavePrescription(ctx, b)
	if !res.RefillCreated {
		t.Error("expected refill to be recreated after delete")
	}
}

func TestDueReminders(t *testing.T) {
	m, s := newTestManager()
	ctx := context.Background()
	_, _ = m.SavePrescription(ctx, fever())
	_, _ = m.SetReminder(ctx, "rx-1", "Paracetamol")
	_, _ = m.SetReminder(ctx, "rx-1", "Vitamin C")

	// a hand-edited data file with bad times must be ignored, not fired
	rs, _ := s.LoadReminders(ctx)
	rs = append(rs, model.Reminder{ID: "bad", Times: model.ScheduleTimes{"9pm"}})
	_ = s.SaveReminders(ctx, rs)

	tests := []struct {
		at   time.Time
		want int
	}{
		{time.Date(2024, 6, 2, 9, 0, 30, 0, time.Local), 2},
		{time.Date(2024, 6, 2, 13, 0, 0, 0, time.Local), 1},
		{time.Date(2024, 6, 2, 21, 0, 59, 0, time.Local), 2},
		{time.Date(2024, 6, 2, 9, 1, 0, 0, time.Local), 0},
	}
	for _, tt := range tests {
		t.Run(tt.at.Format("15:04:05"), func(t *testing.T) {
			due, err := m.DueReminders(ctx, tt.at)
			if err != nil {
				t.Fatal(err)
			}
			if len(due) != tt.want {
				t.Errorf("len(DueReminders) = %d, want %d", len(due), tt.want)
			}
		})
	}
}

func TestRenameAndDeletePrescription(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()
	_, _ = m.SavePrescription(ctx, fever())

	if _, err := m.RenamePrescription(ctx, "rx-1", ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
	p, err := m.RenamePrescription(ctx, "rx-1", "Flu")
	if err != nil || p.Name != "Flu" {
		t.Fatalf("RenamePrescription = (%+v, %v)", p, err)
	}
	got, _ := m.Prescription(ctx, "rx-1")
	if got.Name != "Flu" {
		t.Errorf("stored name = %q, want Flu", got.Name)
	}

	if err := m.DeletePrescription(ctx, "rx-1"); err != nil {
		t.Fatalf("DeletePrescription failed: %v", err)
	}
	if _, err := m.Prescription(ctx, "rx-1"); !errors.Is(err, ErrPrescriptionNotFound) {
		t.Errorf("err = %v, want ErrPrescriptionNotFound", err)
	}
	if err := m.DeletePrescription(ctx, "rx-1"); !errors.Is(err, ErrPrescriptionNotFound) {
		t.Errorf("err = %v, want ErrPrescriptionNotFound", err)
	}
}

func TestSetClock_ConcurrentWithNow(t *testing.T) {
	m, _ := newTestManager()
	pinned := time.Date(2024, 6, 1, 9, 0, 0, 0, time.Local)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.SetClock(func() time.Time { return pinned })
		}()
		go func() {
			defer wg.Done()
			_ = m.Now()
		}()
	}
	wg.Wait()

	if got := m.Now(); !got.Equal(pinned) {
		t.Errorf("Now() = %v, want %v", got, pinned)
	}
}
