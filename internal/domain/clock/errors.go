package clock

import "errors"

// ErrInvalidClockTime is returned when a string is not a 24-hour H:MM/HH:MM time.
var ErrInvalidClockTime = errors.New("invalid clock time")
