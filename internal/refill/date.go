package refill

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var (
	dateSep = regexp.MustCompile(`[/\-.]`)

	// dateparse reads d.m.y dotted dates month-first regardless of
	// PreferMonthFirst, so they are rewritten with slashes first.
	dottedDayFirst = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{2,4})`)
)

// ParseDate interprets a loosely formatted prescription date. It first tries
// general date parsing with day-first precedence for ambiguous numeric
// dates; failing that, a three-part numeric date split on '/', '-' or '.' is
// read as DAY/MONTH/YEAR. The result is local midnight.
func ParseDate(text string) (time.Time, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return time.Time{}, false
	}

	if t, ok := parseStandard(dottedDayFirst.ReplaceAllString(s, "$1/$2/$3")); ok {
		return t, true
	}

	parts := dateSep.Split(s, -1)
	if len(parts) != 3 {
		return time.Time{}, false
	}
	day := strings.TrimSpace(parts[0])
	month := strings.TrimSpace(parts[1])
	year := strings.TrimSpace(parts[2])
	if len(year) != 4 {
		return time.Time{}, false
	}
	return parseStandard(year + "-" + month + "-" + day)
}

func parseStandard(s string) (t time.Time, ok bool) {
	// dateparse has panicked on malformed input in the past
	defer func() {
		if r := recover(); r != nil {
			t, ok = time.Time{}, false
		}
	}()

	parsed, err := dateparse.ParseIn(s, time.Local, dateparse.PreferMonthFirst(false))
	if err != nil {
		return time.Time{}, false
	}
	return midnight(parsed), true
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}
