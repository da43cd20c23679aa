package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"rxremind/internal/model"
)

func samplePrescription() model.Prescription {
	return model.Prescription{
		ID:   "rx-1",
		Name: "Fever",
		Date: "01/06/2024",
		Medications: []model.Medication{
			{Name: "Paracetamol", Dosage: "500mg", Frequency: "1-0-1", Duration: "5 days"},
		},
	}
}

func TestFile_MissingFileLoadsEmpty(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "nested", "data.yaml"))
	ctx := context.Background()

	ps, err := f.LoadPrescriptions(ctx)
	if err != nil {
		t.Fatalf("LoadPrescriptions failed: %v", err)
	}
	if len(ps) != 0 {
		t.Errorf("expected no prescriptions, got %d", len(ps))
	}
	rs, err := f.LoadReminders(ctx)
	if err != nil || len(rs) != 0 {
		t.Errorf("LoadReminders = (%v, %v), want empty", rs, err)
	}
}

func TestFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.yaml")
	f := NewFile(path)
	ctx := context.Background()

	p := samplePrescription()
	r := model.Reminder{
		ID:               model.ReminderID(p.ID, "Paracetamol"),
		PrescriptionID:   p.ID,
		MedicationName:   "Paracetamol",
		PrescriptionName: p.Name,
		Frequency:        "1-0-1",
		Times:            model.ScheduleTimes{"09:00", "21:00"},
	}
	rr := model.RefillReminder{ID: p.ID, PrescriptionName: p.Name, RefillDate: "2024-06-05"}

	if err := f.SavePrescriptions(ctx, []model.Prescription{p}); err != nil {
		t.Fatalf("SavePrescriptions failed: %v", err)
	}
	if err := f.SaveReminders(ctx, []model.Reminder{r}); err != nil {
		t.Fatalf("SaveReminders failed: %v", err)
	}
	if err := f.SaveRefills(ctx, []model.RefillReminder{rr}); err != nil {
		t.Fatalf("SaveRefills failed: %v", err)
	}

	// a fresh instance must see what the first one wrote
	g := NewFile(path)
	ps, err := g.LoadPrescriptions(ctx)
	if err != nil {
		t.Fatalf("LoadPrescriptions failed: %v", err)
	}
	if !reflect.DeepEqual(ps, []model.Prescription{p}) {
		t.Errorf("prescriptions = %+v, want %+v", ps, p)
	}
	rs, _ := g.LoadReminders(ctx)
	if !reflect.DeepEqual(rs, []model.Reminder{r}) {
		t.Errorf("reminders = %+v, want %+v", rs, r)
	}
	rrs, _ := g.LoadRefills(ctx)
	if !reflect.DeepEqual(rrs, []model.RefillReminder{rr}) {
		t.Errorf("refills = %+v, want %+v", rrs, rr)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %o, want 600", perm)
	}
}

func TestFile_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.yaml")
	if err := os.WriteFile(path, []byte("prescriptions: [::"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := NewFile(path).LoadRefills(context.Background())
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("err = %v, want ErrCorrupt", err)
	}

	// writes must not clobber a file we could not read
	err = NewFile(path).SaveRefills(context.Background(), nil)
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("save err = %v, want ErrCorrupt", err)
	}
}

func TestMemory_NoAliasing(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	in := []model.Reminder{{ID: "a", Times: model.ScheduleTimes{"09:00"}}}
	if err := m.SaveReminders(ctx, in); err != nil {
		t.Fatal(err)
	}
	in[0].Times[0] = "10:00"

	out, _ := m.LoadReminders(ctx)
	if out[0].Times[0] != "09:00" {
		t.Fatalf("stored reminder changed through caller slice: %v", out[0].Times)
	}
	out[0].ID = "changed"
	again, _ := m.LoadReminders(ctx)
	if again[0].ID != "a" {
		t.Fatalf("stored reminder changed through loaded slice")
	}
}
