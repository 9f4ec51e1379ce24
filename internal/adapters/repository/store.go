// Package repository holds the in-memory session store and its errors.
package repository

import (
	"context"
	"time"
)

// Store keeps values keyed by id and tracks when each was last touched.
type Store[V any] interface {
	// Put inserts or replaces the value for id and marks it touched at now.
	Put(ctx context.Context, id string, v V, now time.Time)

	// Get returns the value for id and marks it touched at now.
	// Returns ErrNotFound if id is unknown.
	Get(ctx context.Context, id string, now time.Time) (V, error)

	// Delete removes id. Returns false if it was not present.
	Delete(ctx context.Context, id string) bool

	// Range calls fn for every value until fn returns false.
	Range(ctx context.Context, fn func(id string, v V) bool)

	// Count returns the number of stored values.
	Count(ctx context.Context) int

	// EvictIdle removes every value not touched since cutoff and returns them.
	EvictIdle(ctx context.Context, cutoff time.Time) []V
}
