package ics

import (
	"sort"
	"time"

	"rxremind/internal/model"
	"rxremind/internal/schedule"
)

// Dose is one concrete instance of a reminder.
type Dose struct {
	ReminderID       string    `json:"reminder_id"`
	MedicationName   string    `json:"medication_name"`
	PrescriptionName string    `json:"prescription_name"`
	At               time.Time `json:"at"`
}

// Upcoming expands reminders into doses within [from, to], ordered by time
// and then reminder ID.
func Upcoming(reminders []model.Reminder, from, to time.Time) []Dose {
	doses := make([]Dose, 0)
	for _, r := range reminders {
		for _, at := range schedule.Occurrences(r.Times, from, to) {
			doses = append(doses, Dose{
				ReminderID:       r.ID,
				MedicationName:   r.MedicationName,
				PrescriptionName: r.PrescriptionName,
				At:               at,
			})
		}
	}
	sort.SliceStable(doses, func(i, j int) bool {
		if !doses[i].At.Equal(doses[j].At) {
			return doses[i].At.Before(doses[j].At)
		}
		return doses[i].ReminderID < doses[j].ReminderID
	})
	return doses
}
