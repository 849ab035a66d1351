// Package duration converts time spans to the textual form stored on
// attendance records and back. The formatted string is a rendering and
// storage artifact only; whole minutes are the canonical value.
package duration

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"manabitrack/internal/model"
)

// ErrInvalidSpan is returned when a span's end precedes its start.
var ErrInvalidSpan = errors.New("duration: end before start")

var durationPattern = regexp.MustCompile(`^(\d+) hours? (\d+) minutes?$`)

// ElapsedMinutes returns the whole minutes between two same-day clock
// values, flooring sub-minute remainders.
func ElapsedMinutes(start, end time.Time) (int, error) {
	if end.Before(start) {
		return 0, ErrInvalidSpan
	}
	return int(end.Sub(start) / time.Minute), nil
}

// ElapsedClock is ElapsedMinutes over "15:04:05" clock strings.
func ElapsedClock(start, end string) (int, error) {
	s, err := time.Parse(model.ClockLayout, start)
	if err != nil {
		return 0, fmt.Errorf("duration: bad start %q: %w", start, err)
	}
	e, err := time.Parse(model.ClockLayout, end)
	if err != nil {
		return 0, fmt.Errorf("duration: bad end %q: %w", end, err)
	}
	return ElapsedMinutes(s, e)
}

// Format renders minutes as "H hours M minutes", with singular unit names
// at exactly one.
func Format(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	h, m := minutes/60, minutes%60
	return fmt.Sprintf("%d %s %d %s", h, plural(h, "hour"), m, plural(m, "minute"))
}

func plural(n int, unit string) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}

// Parse recovers minutes from text produced by Format. ok is false for any
// non-matching text; callers treat that as "unknown" and exclude the value
// from totals rather than failing.
func Parse(text string) (minutes int, ok bool) {
	m := durationPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	h, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	mins, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false
	}
	return h*60 + mins, true
}
