// Package model contains domain models passed between layers.
package model

import "github.com/okian/cadence/internal/domain/clock"

// Observation is one timestamped numeric data point entered by a user.
// It is immutable once created; MinuteOfDay is derived at creation time.
type Observation struct {
	ClockTime   string  `json:"time"`          // "HH:MM" or "H:MM" as entered
	Value       float64 `json:"value"`         // multiplier, non-negative
	MinuteOfDay int     `json:"minute_of_day"` // hours*60+minutes in [0, 1439]
}

// NewObservation builds an Observation, deriving MinuteOfDay from clockTime.
func NewObservation(clockTime string, value float64) (Observation, error) {
	m, err := clock.Parse(clockTime)
	if err != nil {
		return Observation{}, err
	}
	return Observation{ClockTime: clockTime, Value: value, MinuteOfDay: m}, nil
}

// DisplayTime returns the zero-padded clock time of the observation.
func (o Observation) DisplayTime() string {
	return clock.Format(o.MinuteOfDay)
}
