package booking

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidClock = errors.New("invalid clock value")

// ParseClock parses a 24-hour "HH:MM" string into minutes since midnight.
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("%w %q", ErrInvalidClock, s)
	}

	var h, m int
	if _, err := fmt.Sscanf(s, "%02d:%02d", &h, &m); err != nil {
		return 0, fmt.Errorf("%w %q", ErrInvalidClock, s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w %q: out of range", ErrInvalidClock, s)
	}

	return h*60 + m, nil
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ClockAt anchors an "HH:MM" value on date's calendar day in loc.
func ClockAt(date time.Time, clock string, loc *time.Location) (time.Time, error) {
	mins, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	y, mo, d := date.Date()
	return time.Date(y, mo, d, mins/60, mins%60, 0, 0, loc), nil
}

// DateOf truncates t to midnight of its calendar day in loc.
func DateOf(t time.Time, loc *time.Location) time.Time {
	y, mo, d := t.In(loc).Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, loc)
}

// DateLayout is the wire and SQL format for calendar dates.
const DateLayout = "2006-01-02"

// CompareDate orders a and b by calendar components only, ignoring the
// location each value happens to be expressed in. Stored dates scan out of
// Postgres at UTC midnight while "today" is built in the business zone;
// converting either would shift the day.
func CompareDate(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by {
		return ay - by
	}
	if am != bm {
		return int(am) - int(bm)
	}
	return ad - bd
}
