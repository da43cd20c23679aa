package schedule

import (
	"testing"
	"time"

	"rxremind/internal/model"
)

func TestOccurrences(t *testing.T) {
	from := time.Date(2024, 6, 1, 10, 0, 0, 0, time.Local)
	to := time.Date(2024, 6, 3, 10, 0, 0, 0, time.Local)

	got := Occurrences(model.ScheduleTimes{"09:00", "21:30"}, from, to)

	want := []time.Time{
		time.Date(2024, 6, 1, 21, 30, 0, 0, time.Local),
		time.Date(2024, 6, 2, 9, 0, 0, 0, time.Local),
		time.Date(2024, 6, 2, 21, 30, 0, 0, time.Local),
		time.Date(2024, 6, 3, 9, 0, 0, 0, time.Local),
	}
	if len(got) != len(want) {
		t.Fatalf("Occurrences() = %v, want %v", got, want)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("occurrence %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestOccurrences_Empty(t *testing.T) {
	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.Local)
	to := from.Add(48 * time.Hour)

	tests := []struct {
		name  string
		times model.ScheduleTimes
		from  time.Time
		to    time.Time
	}{
		{"no times", model.ScheduleTimes{}, from, to},
		{"invalid times", model.ScheduleTimes{"25:00"}, from, to},
		{"reversed range", model.ScheduleTimes{"09:00"}, to, from},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Occurrences(tt.times, tt.from, tt.to); len(got) != 0 {
				t.Errorf("Occurrences() = %v, want none", got)
			}
		})
	}
}

func TestDailyRule_Until(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.Local)
	until := time.Date(2024, 6, 3, 0, 0, 0, 0, time.Local)

	r, err := DailyRule("08:00", start, until)
	if err != nil {
		t.Fatalf("DailyRule failed: %v", err)
	}
	if got := len(r.All()); got != 2 {
		t.Errorf("len(All()) = %d, want 2", got)
	}

	if _, err := DailyRule("8am", start, until); err == nil {
		t.Error("expected error for malformed time")
	}
}
