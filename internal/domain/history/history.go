// Package history keeps the per-session, time-ordered list of observations.
//
// The store is not safe for concurrent use; the owning session serializes
// access to it.
package history

import (
	"math"
	"sort"

	"github.com/okian/cadence/internal/domain/clock"
	"github.com/okian/cadence/internal/domain/model"
)

// Store is an append-only sequence of observations ordered ascending by
// minute of day. Equal minutes keep their insertion order.
type Store struct {
	entries []model.Observation
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// Append validates and inserts an observation in sorted position.
// On failure it returns a *ValidationError and leaves the store untouched.
func (s *Store) Append(clockTime string, value float64) (model.Observation, error) {
	if err := CheckTime(clockTime); err != nil {
		return model.Observation{}, err
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return model.Observation{}, &ValidationError{Field: FieldValue, Input: formatValue(value), Reason: "must be a finite number"}
	}
	if value < 0 {
		return model.Observation{}, &ValidationError{Field: FieldValue, Input: formatValue(value), Reason: "must not be negative"}
	}

	o, err := model.NewObservation(clockTime, value)
	if err != nil {
		return model.Observation{}, &ValidationError{Field: FieldTime, Input: clockTime, Reason: err.Error()}
	}

	// First index with a strictly greater minute keeps ties in insertion order.
	i := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].MinuteOfDay > o.MinuteOfDay
	})
	s.entries = append(s.entries, model.Observation{})
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = o
	return o, nil
}

// CheckTime returns the error Append reports for an invalid clockTime, or nil.
func CheckTime(clockTime string) error {
	if !clock.Valid(clockTime) {
		return &ValidationError{Field: FieldTime, Input: clockTime, Reason: "must be 24-hour H:MM or HH:MM"}
	}
	return nil
}

// Reset drops every observation.
func (s *Store) Reset() {
	s.entries = nil
}

// Len returns the number of stored observations.
func (s *Store) Len() int {
	return len(s.entries)
}

// Latest returns the last n observations in ascending order, or all of them
// when fewer than n exist.
func (s *Store) Latest(n int) []model.Observation {
	if n <= 0 {
		return nil
	}
	if n > len(s.entries) {
		n = len(s.entries)
	}
	out := make([]model.Observation, n)
	copy(out, s.entries[len(s.entries)-n:])
	return out
}

// All returns a copy of the full history in ascending order.
func (s *Store) All() []model.Observation {
	out := make([]model.Observation, len(s.entries))
	copy(out, s.entries)
	return out
}
