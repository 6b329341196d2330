package model

import (
	"fmt"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// ParseEventDateTime combines a YYYY-MM-DD date and optional HH:MM time
// into a single instant in loc. An empty time means midnight.
func ParseEventDateTime(date, tm string, loc *time.Location) (time.Time, error) {
	if date == "" {
		return time.Time{}, fmt.Errorf("date is empty")
	}
	if loc == nil {
		loc = time.Local
	}
	if tm == "" {
		t, err := time.ParseInLocation("2006-01-02", date, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
		}
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+tm, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date/time %q %q: %w", date, tm, err)
	}
	return t, nil
}

var naturalParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// ParseNaturalTime parses event times for CLI entry. Strict layouts are
// tried first so ISO input never ends up in the natural-language parser,
// which would match only its time-of-day portion.
func ParseNaturalTime(s string, ref time.Time) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, ref.Location()); err == nil {
			return t, nil
		}
	}
	r, err := naturalParser.Parse(s, ref)
	if err != nil {
		return time.Time{}, fmt.Errorf("could not parse %q: %w", s, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("could not parse %q", s)
	}
	return r.Time, nil
}
