// Package status derives a human-facing status from the distance between
// "now" and a predicted minute of day.
//
// Classification is a total function of two integers: nothing is stored
// between evaluations, so transitions are only the effect of the clock
// moving forward.
package status

import (
	"github.com/okian/cadence/internal/domain/clock"
	"github.com/okian/cadence/internal/domain/prediction"
)

// Classification thresholds, in minutes of (predicted - now).
const (
	// NextDayThreshold treats a diff below it as a prediction for the next
	// day. It is not symmetric around midnight.
	NextDayThreshold = -1200

	spikeUpper   = 3
	spikeLower   = 1
	executeLower = -1
)

// Status is one of four mutually exclusive states.
type Status int

// Statuses, in classification priority order.
const (
	Cold Status = iota
	SpikeImminent
	Execute
	Expired
)

var statusNames = [...]string{
	Cold:          "COLD",
	SpikeImminent: "SPIKE_IMMINENT",
	Execute:       "EXECUTE",
	Expired:       "EXPIRED",
}

func (s Status) String() string {
	if s < Cold || s > Expired {
		return "UNKNOWN"
	}
	return statusNames[s]
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Diff returns predicted-now with the next-day correction applied.
func Diff(predictedMinute, nowMinute int) int {
	diff := predictedMinute - nowMinute
	if diff < NextDayThreshold {
		diff += clock.MinutesPerDay
	}
	return diff
}

// Classify maps a prediction and the current minute onto a Status.
func Classify(predictedMinute, nowMinute int) Status {
	return FromDiff(Diff(predictedMinute, nowMinute))
}

// FromDiff classifies an already corrected diff.
func FromDiff(diff int) Status {
	switch {
	case diff > spikeUpper:
		return Cold
	case diff >= spikeLower:
		return SpikeImminent
	case diff >= executeLower:
		return Execute
	default:
		return Expired
	}
}

// Evaluate classifies p against now. It reports false when p is unset, in
// which case the caller keeps its neutral display.
func Evaluate(p prediction.Prediction, nowMinute int) (Status, bool) {
	if !p.Set {
		return 0, false
	}
	return Classify(p.MinuteOfDay, nowMinute), true
}
