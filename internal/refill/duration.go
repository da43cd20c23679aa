package refill

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var durationRe = regexp.MustCompile(`(\d+)\s*(day|week|month)s?`)

// daysPerUnit uses a fixed 30-day month on purpose; refill dates must not
// depend on which calendar month the course starts in.
var daysPerUnit = map[string]int{
	"day":   1,
	"week":  7,
	"month": 30,
}

// ParseDuration extracts the first "<n> day(s)|week(s)|month(s)" from free
// text and converts it to a number of days. Matching is case-insensitive.
func ParseDuration(text string) (int, bool) {
	days, _, ok := parseDuration(text)
	return days, ok
}

// parseDuration also reports whether text matched at all, so callers can
// tell "no duration" from a duration too large to represent.
func parseDuration(text string) (days int, matched, ok bool) {
	m := durationRe.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return 0, false, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, true, false
	}
	per := daysPerUnit[m[2]]
	if n > math.MaxInt32/per {
		return 0, true, false
	}
	return n * per, true, true
}
