// Package dedupe tracks submission ids so a repeated submit is acknowledged
// without being applied twice.
package dedupe

// Option applies a configuration option to the InMemoryDeduper.
type Option func(*inMemoryDeduper)

// WithMaxSize sets the maximum number of ids to keep in memory.
// If maxSize > 0: bounded mode, oldest id evicted first.
// If maxSize <= 0: unbounded mode.
func WithMaxSize(maxSize int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = maxSize
	}
}
