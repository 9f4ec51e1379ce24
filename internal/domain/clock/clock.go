// Package clock converts between "HH:MM" wall-clock strings and minute-of-day
// integers on a repeating 24-hour clock.
package clock

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Clock constants.
const (
	MinutesPerHour = 60
	MinutesPerDay  = 24 * MinutesPerHour
	// Unset is the display value used before any prediction exists.
	Unset = "--:--"
)

// clockPattern accepts 24-hour H:MM or HH:MM.
var clockPattern = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)

// Valid reports whether s matches the accepted clock grammar.
func Valid(s string) bool {
	return clockPattern.MatchString(s)
}

// Parse converts a clock string into a minute-of-day in [0, 1439].
func Parse(s string) (int, error) {
	if !Valid(s) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClockTime, s)
	}
	hh, mm, _ := strings.Cut(s, ":")
	hours, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClockTime, s)
	}
	minutes, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClockTime, s)
	}
	return hours*MinutesPerHour + minutes, nil
}

// Normalize folds any minute value into [0, 1439].
func Normalize(m int) int {
	m %= MinutesPerDay
	if m < 0 {
		m += MinutesPerDay
	}
	return m
}

// Format renders a minute value as zero-padded "HH:MM" after normalizing it.
func Format(m int) string {
	m = Normalize(m)
	return fmt.Sprintf("%02d:%02d", m/MinutesPerHour, m%MinutesPerHour)
}

// FromTime returns the minute-of-day of t in t's location.
func FromTime(t time.Time) int {
	return t.Hour()*MinutesPerHour + t.Minute()
}
