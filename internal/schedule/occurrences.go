package schedule

import (
	"time"

	"github.com/teambition/rrule-go"

	appLog "rxremind/internal/log"
	"rxremind/internal/model"
)

// DailyRule builds a FREQ=DAILY recurrence firing at hhmm every day,
// starting on the calendar day of start (local time).
func DailyRule(hhmm string, start time.Time, until time.Time) (*rrule.RRule, error) {
	tod, err := time.Parse("15:04", hhmm)
	if err != nil {
		return nil, err
	}
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.Local)

	opt := rrule.ROption{
		Freq:     rrule.DAILY,
		Dtstart:  day,
		Byhour:   []int{tod.Hour()},
		Byminute: []int{tod.Minute()},
		Bysecond: []int{0},
	}
	if !until.IsZero() {
		opt.Until = until
	}
	return rrule.NewRRule(opt)
}

// Occurrences expands a daily schedule into concrete dose instants within
// [from, to], in ascending order. Invalid schedules expand to nothing.
func Occurrences(times model.ScheduleTimes, from, to time.Time) []time.Time {
	if len(times) == 0 || to.Before(from) || !ValidTimes(times) {
		return nil
	}

	// One rule per slot: BYHOUR x BYMINUTE would otherwise form a cross
	// product (09:00 + 21:30 would also yield 09:30 and 21:00).
	var set rrule.Set
	for _, hhmm := range times {
		r, err := DailyRule(hhmm, from, time.Time{})
		if err != nil {
			appLog.Error("schedule: failed to build daily rule", err, "time", hhmm)
			return nil
		}
		set.RRule(r)
	}

	return set.Between(from, to, true)
}
