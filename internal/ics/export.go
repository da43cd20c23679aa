// Package ics renders reminders as an iCalendar feed so they can be
// subscribed to from any calendar app, and expands them into concrete
// upcoming doses.
package ics

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "rxremind/internal/log"
	"rxremind/internal/model"
	"rxremind/internal/refill"
	"rxremind/internal/schedule"
)

const (
	ProductID = "-//rxremind//medication reminders//EN"

	uidDomain    = "@rxremind"
	floatingTime = "20060102T150405"
	doseLength   = 15 * time.Minute
)

// ExportOptions holds everything needed to render a calendar.
type ExportOptions struct {
	Prescriptions []model.Prescription
	Reminders     []model.Reminder
	Refills       []model.RefillReminder

	// Now stamps DTSTAMP and is the first day of reminders whose
	// prescription date cannot be parsed. Zero means time.Now().
	Now time.Time
}

// Export builds an iCalendar document. Each reminder time becomes a daily
// recurring event in floating local time; each refill reminder becomes an
// all-day event.
func Export(opts ExportOptions) []byte {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	byID := make(map[string]model.Prescription, len(opts.Prescriptions))
	for _, p := range opts.Prescriptions {
		byID[p.ID] = p
	}
	refillByID := make(map[string]model.RefillReminder, len(opts.Refills))
	for _, rr := range opts.Refills {
		refillByID[rr.ID] = rr
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)
	cal.SetXWRCalName("Medication reminders")

	for _, r := range opts.Reminders {
		p, known := byID[r.PrescriptionID]

		start := now
		if known {
			if d, ok := refill.ParseDate(p.Date); ok {
				start = d
			}
		}

		var until time.Time
		if rr, ok := refillByID[r.PrescriptionID]; ok {
			if d, err := time.ParseInLocation(refill.DateLayout, rr.RefillDate, time.Local); err == nil {
				until = d.AddDate(0, 0, 1)
			}
		}

		for _, hhmm := range r.Times {
			addDoseEvent(cal, r, p, hhmm, start, until, now)
		}
	}

	for _, rr := range opts.Refills {
		day, err := time.ParseInLocation(refill.DateLayout, rr.RefillDate, time.Local)
		if err != nil {
			appLog.Warn("ics: skipping refill with bad date", "id", rr.ID, "refill_date", rr.RefillDate)
			continue
		}
		ev := cal.AddEvent("refill-" + rr.ID + uidDomain)
		ev.SetDtStampTime(now)
		ev.SetAllDayStartAt(day)
		ev.SetAllDayEndAt(day.AddDate(0, 0, 1))
		ev.SetSummary("Refill: " + rr.PrescriptionName)
		ev.SetDescription("Your medication for " + rr.PrescriptionName + " is about to run out.")
	}

	return []byte(cal.Serialize())
}

func addDoseEvent(cal *ical.Calendar, r model.Reminder, p model.Prescription, hhmm string, start, until, now time.Time) {
	rule, err := schedule.DailyRule(hhmm, start, time.Time{})
	if err != nil {
		appLog.Warn("ics: skipping malformed reminder time", "id", r.ID, "time", hhmm)
		return
	}
	first := rule.OrigOptions.Dtstart
	tod, _ := time.Parse("15:04", hhmm)
	first = first.Add(time.Duration(tod.Hour())*time.Hour + time.Duration(tod.Minute())*time.Minute)

	ev := cal.AddEvent(r.ID + "-" + strings.ReplaceAll(hhmm, ":", "") + uidDomain)
	ev.SetDtStampTime(now)
	ev.SetProperty(ical.ComponentPropertyDtStart, first.Format(floatingTime))
	ev.SetProperty(ical.ComponentPropertyDtEnd, first.Add(doseLength).Format(floatingTime))
	// RRuleString renders UNTIL in UTC; it must be floating like DTSTART
	rrule := rule.OrigOptions.RRuleString()
	if !until.IsZero() {
		rrule += ";UNTIL=" + until.Format(floatingTime)
	}
	ev.AddProperty(ical.ComponentPropertyRrule, rrule)
	ev.SetSummary("Take " + r.MedicationName)

	desc := "From prescription: " + r.PrescriptionName
	if m, ok := p.Medication(r.MedicationName); ok && m.Dosage != "" {
		desc = m.Dosage + ", " + r.Frequency + ". " + desc
	}
	ev.SetDescription(desc)
}
