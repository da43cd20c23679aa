package schedule

import (
	"strings"
	"time"

	"rxremind/internal/model"
)

// Rule maps a set of frequency notations to fixed daily clock times.
type Rule struct {
	Name     string              `json:"name"`
	Triggers []string            `json:"triggers"`
	Times    model.ScheduleTimes `json:"times"`
}

// rules is evaluated in order and the first rule with a matching trigger wins.
// Triggers are lowercase and matched as plain substrings, so "bd" also
// matches inside longer words.
var rules = []Rule{
	{
		Name:     "once-morning",
		Triggers: []string{"1-0-0", "once a day", "morning"},
		Times:    model.ScheduleTimes{"09:00"},
	},
	{
		Name:     "once-night",
		Triggers: []string{"0-0-1", "night"},
		Times:    model.ScheduleTimes{"21:00"},
	},
	{
		Name:     "twice",
		Triggers: []string{"1-0-1", "twice a day", "bd", "bid"},
		Times:    model.ScheduleTimes{"09:00", "21:00"},
	},
	{
		Name:     "thrice",
		Triggers: []string{"1-1-1", "thrice a day", "tds", "tid"},
		Times:    model.ScheduleTimes{"09:00", "13:00", "21:00"},
	},
	{
		Name:     "four-times",
		Triggers: []string{"four times a day", "qid"},
		Times:    model.ScheduleTimes{"08:00", "12:00", "16:00", "21:00"},
	},
}

// ParseFrequency maps free-text frequency notation ("1-0-1", "BD",
// "thrice a day", ...) to daily clock times. Unrecognized input yields an
// empty, non-nil result; the caller must not create a reminder for it.
func ParseFrequency(frequency string) model.ScheduleTimes {
	lower := strings.ToLower(frequency)
	for _, r := range rules {
		if r.matches(lower) {
			return append(model.ScheduleTimes{}, r.Times...)
		}
	}
	return model.ScheduleTimes{}
}

func (r Rule) matches(lower string) bool {
	for _, t := range r.Triggers {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

// Rules returns a copy of the ordered rule table.
func Rules() []Rule {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		out = append(out, Rule{
			Name:     r.Name,
			Triggers: append([]string(nil), r.Triggers...),
			Times:    append(model.ScheduleTimes(nil), r.Times...),
		})
	}
	return out
}

// ValidTimes reports whether times are well-formed "HH:MM" values in
// strictly ascending order. An empty list is valid.
func ValidTimes(times model.ScheduleTimes) bool {
	prev := ""
	for _, t := range times {
		if len(t) != 5 {
			return false
		}
		if _, err := time.Parse("15:04", t); err != nil {
			return false
		}
		// zero-padded HH:MM sorts lexically
		if prev != "" && t <= prev {
			return false
		}
		prev = t
	}
	return true
}
