// Package prediction turns the three most recent observations into a
// predicted minute of day and a bounded confidence.
package prediction

import (
	"fmt"
	"math"

	"github.com/okian/cadence/internal/domain/clock"
	"github.com/okian/cadence/internal/domain/model"
)

// Window is the number of observations the engine consumes.
const Window = 3

// Prediction is the engine output. The zero value is not the unset
// sentinel; use Unset.
type Prediction struct {
	ClockTime   string  `json:"time"`          // normalized "HH:MM", or "--:--" when unset
	Confidence  float64 `json:"confidence"`    // percent in [ConfidenceMin, ConfidenceMax], 0 when unset
	MinuteOfDay int     `json:"minute_of_day"` // raw target minute, may exceed 1439
	Set         bool    `json:"set"`

	Regime     Regime          `json:"regime"`
	AvgGap     float64         `json:"avg_gap"`
	Volatility float64         `json:"volatility"`
	Gaps       [Window - 1]int `json:"gaps"`
}

// Unset returns the sentinel prediction shown before the first computation.
func Unset() Prediction {
	return Prediction{ClockTime: clock.Unset}
}

// Engine computes predictions. It is stateless apart from its parameters.
type Engine struct {
	params Params
}

// NewEngine creates an engine with default parameters and options applied.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{params: DefaultParams()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Params returns the engine's parameters.
func (e *Engine) Params() Params {
	return e.params
}

// Gaps returns consecutive minute gaps, adding a day to any negative gap so
// that a midnight crossing reads as forward time.
func Gaps(obs []model.Observation) []int {
	if len(obs) < 2 {
		return nil
	}
	gaps := make([]int, len(obs)-1)
	for i := range gaps {
		d := obs[i+1].MinuteOfDay - obs[i].MinuteOfDay
		if d < 0 {
			d += clock.MinutesPerDay
		}
		gaps[i] = d
	}
	return gaps
}

// Predict runs the heuristic over exactly three ascending observations.
func (e *Engine) Predict(lastThree []model.Observation) (Prediction, error) {
	if len(lastThree) != Window {
		return Unset(), fmt.Errorf("%w: need %d observations, got %d", ErrPrecondition, Window, len(lastThree))
	}

	gaps := Gaps(lastThree)
	var sum float64
	for _, g := range gaps {
		sum += float64(g)
	}
	avgGap := sum / float64(len(gaps))

	var variance float64
	for _, g := range gaps {
		d := float64(g) - avgGap
		variance += d * d
	}
	variance /= float64(len(gaps))

	volatility := math.Sqrt(variance)
	if variance == 0 {
		volatility = e.params.VolatilityFloor
	}

	last := lastThree[Window-1].MinuteOfDay
	regime := e.params.ClassifyRegime(avgGap)

	var target int
	var confidence float64
	switch regime {
	case RegimeFast:
		target = last + fastLeadMinutes
		confidence = fastBaseConfidence - fastVolatilityWeight*volatility
	case RegimeSlow:
		target = last + int(math.Floor(slowGapFactor*avgGap))
		confidence = slowBaseConfidence - slowVolatilityWeight*volatility
	default:
		target = last + int(math.Floor(avgGap+midLeadMinutes))
		confidence = midBaseConfidence - midVolatilityWeight*volatility
	}

	confidence = math.Max(e.params.ConfidenceMin, math.Min(e.params.ConfidenceMax, confidence))

	p := Prediction{
		ClockTime:   clock.Format(target),
		Confidence:  confidence,
		MinuteOfDay: target,
		Set:         true,
		Regime:      regime,
		AvgGap:      avgGap,
		Volatility:  volatility,
	}
	copy(p.Gaps[:], gaps)
	return p, nil
}
