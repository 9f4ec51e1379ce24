package simulate

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/okian/cadence/internal/domain/clock"
	"github.com/okian/cadence/internal/domain/model"
	"github.com/okian/cadence/internal/domain/prediction"
	"github.com/okian/cadence/pkg/logger"
)

// Gap ranges in minutes that land in each regime with default parameters.
type gapRange struct {
	regime   prediction.Regime
	min, max int
}

var gapRanges = []gapRange{
	{regime: prediction.RegimeFast, min: 1, max: 4},
	{regime: prediction.RegimeMid, min: 6, max: 19},
	{regime: prediction.RegimeSlow, min: 21, max: 45},
}

const (
	valueMin = 1.0
	valueMax = 12.0
)

// Generator builds scenarios and their expected predictions.
type Generator struct {
	rng    *rand.Rand
	engine *prediction.Engine
}

// NewGenerator creates a generator; a zero seed picks one from the clock.
func NewGenerator(seed uint64) *Generator {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Generator{
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		engine: prediction.NewEngine(),
	}
}

// Generate creates n scenarios cycling through the regimes.
func (g *Generator) Generate(ctx context.Context, n int) []Scenario {
	out := make([]Scenario, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, g.scenario(i, gapRanges[i%len(gapRanges)]))
	}
	logger.Get().Info(ctx, "generated scenarios", logger.Int("count", len(out)))
	return out
}

func (g *Generator) scenario(id int, gr gapRange) Scenario {
	gap1 := gr.min + g.rng.IntN(gr.max-gr.min+1)
	gap2 := gr.min + g.rng.IntN(gr.max-gr.min+1)

	// Keep all three readings on the same day.
	start := g.rng.IntN(clock.MinutesPerDay - gap1 - gap2)
	minutes := [prediction.Window]int{start, start + gap1, start + gap1 + gap2}

	obs := make([]model.Observation, 0, prediction.Window)
	readings := make([]Reading, 0, prediction.Window)
	for _, m := range minutes {
		v := math.Round((valueMin+g.rng.Float64()*(valueMax-valueMin))*100) / 100
		t := clock.Format(m)
		readings = append(readings, Reading{Time: t, Value: v})
		obs = append(obs, model.Observation{ClockTime: t, Value: v, MinuteOfDay: m})
	}

	p, _ := g.engine.Predict(obs)
	return Scenario{
		ID:       id,
		Regime:   p.Regime.String(),
		Readings: readings,
		Expected: Expected{Time: p.ClockTime, Confidence: p.Confidence, Regime: p.Regime.String()},
	}
}

// Shuffled returns the readings in a random order; the server sorts them.
func (g *Generator) Shuffled(s Scenario) []Reading {
	out := append([]Reading(nil), s.Readings...)
	g.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
