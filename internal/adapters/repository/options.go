package repository

import "time"

const (
	defaultShardCount            = 8
	defaultMetricsUpdateInterval = 5 * time.Second
)

// Option applies a configuration option to the ShardedStore.
type Option func(*options)

type options struct {
	shardCount            int
	metricsUpdateInterval time.Duration
	onCount               func(int)
}

// WithShardCount sets how many independently locked shards hold the values.
func WithShardCount(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.shardCount = n
		}
	}
}

// WithMetricsUpdateInterval sets the interval for background count reporting.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(o *options) {
		if interval > 0 {
			o.metricsUpdateInterval = interval
		}
	}
}

// WithCountReporter replaces the function that receives the periodic count.
func WithCountReporter(fn func(int)) Option {
	return func(o *options) {
		if fn != nil {
			o.onCount = fn
		}
	}
}
