// Package refill infers when a prescription needs to be refilled from the
// free-text durations of its medications and its (loosely formatted) date.
//
// Nothing here returns an error: input that cannot be interpreted yields
// ok == false and the caller decides what to tell the user.
package refill

import (
	"time"

	"rxremind/internal/model"
)

// DateLayout is the format of refill dates handed to storage and the UI.
const DateLayout = "2006-01-02"

// LongestCourse returns the longest duration, in days, across meds.
// Medications without a recognizable duration are skipped, but a duration
// too large to represent makes the whole result absent.
func LongestCourse(meds []model.Medication) (int, bool) {
	longest := 0
	for _, m := range meds {
		days, matched, ok := parseDuration(m.Duration)
		if matched && !ok {
			return 0, false
		}
		if days > longest {
			longest = days
		}
	}
	return longest, longest > 0
}

// Resolve computes the refill date: the day before the longest course runs
// out, counting the prescription date as day one.
func Resolve(prescriptionDate string, meds []model.Medication) (time.Time, bool) {
	if len(meds) == 0 {
		return time.Time{}, false
	}
	days, ok := LongestCourse(meds)
	if !ok {
		return time.Time{}, false
	}
	start, ok := ParseDate(prescriptionDate)
	if !ok {
		return time.Time{}, false
	}

	due := start.AddDate(0, 0, days-1)
	if due.Year() > 9999 {
		return time.Time{}, false
	}
	return due, true
}

// ResolveRefillDate is Resolve formatted as YYYY-MM-DD.
func ResolveRefillDate(prescriptionDate string, meds []model.Medication) (string, bool) {
	due, ok := Resolve(prescriptionDate, meds)
	if !ok {
		return "", false
	}
	return due.Format(DateLayout), true
}
