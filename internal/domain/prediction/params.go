package prediction

// Default engine parameters.
const (
	defaultFastGapThreshold = 5.0
	defaultSlowGapThreshold = 20.0
	defaultVolatilityFloor  = 10.0
	defaultConfidenceMin    = 40.0
	defaultConfidenceMax    = 98.0

	fastLeadMinutes      = 4
	fastBaseConfidence   = 92.0
	fastVolatilityWeight = 2.0

	midLeadMinutes      = 2.0
	midBaseConfidence   = 88.0
	midVolatilityWeight = 1.5

	slowGapFactor        = 0.75
	slowBaseConfidence   = 85.0
	slowVolatilityWeight = 1.0
)

// Params holds the tunable constants of the heuristic.
type Params struct {
	FastGapThreshold float64 // avgGap strictly below is fast
	SlowGapThreshold float64 // avgGap strictly above is slow
	// VolatilityFloor replaces a zero variance so perfectly regular input
	// does not produce maximum confidence.
	VolatilityFloor float64
	ConfidenceMin   float64
	ConfidenceMax   float64
}

// DefaultParams returns the stock heuristic constants.
func DefaultParams() Params {
	return Params{
		FastGapThreshold: defaultFastGapThreshold,
		SlowGapThreshold: defaultSlowGapThreshold,
		VolatilityFloor:  defaultVolatilityFloor,
		ConfidenceMin:    defaultConfidenceMin,
		ConfidenceMax:    defaultConfidenceMax,
	}
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithVolatilityFloor overrides the zero-variance volatility substitute.
func WithVolatilityFloor(floor float64) Option {
	return func(e *Engine) {
		if floor > 0 {
			e.params.VolatilityFloor = floor
		}
	}
}

// WithConfidenceBounds overrides the confidence clamp range. Bounds with
// lo < 0 or hi <= lo are ignored.
func WithConfidenceBounds(lo, hi float64) Option {
	return func(e *Engine) {
		if lo >= 0 && hi > lo {
			e.params.ConfidenceMin = lo
			e.params.ConfidenceMax = hi
		}
	}
}
