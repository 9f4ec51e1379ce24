package simulate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/cadence/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
	percentMultiplier   = 100
)

type job struct {
	scenario Scenario
	order    []Reading
}

type counters struct {
	submitted  atomic.Int64
	duplicates atomic.Int64
	failed     atomic.Int64
	matched    atomic.Int64
	mismatched atomic.Int64
}

// Run executes a complete simulation and returns its statistics. It fails
// with ErrMismatch when any served prediction differs from the local one.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	log := logger.Get()
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting cadence simulation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("scenarios", config.Scenarios),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
		logger.Bool("verbose", config.Verbose))

	probe, err := NewClient(config.BaseURL, config.Timeout)
	if err != nil {
		return nil, err
	}
	if err := probe.Health(ctx); err != nil {
		return nil, err
	}

	gen := NewGenerator(config.Seed)
	scenarios := gen.Generate(ctx, config.Scenarios)
	stats.ScenariosGenerated = len(scenarios)

	jobs := make(chan job)
	var c counters

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for _, s := range scenarios {
			select {
			case jobs <- job{scenario: s, order: gen.Shuffled(s)}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	workers := max(1, min(config.Workers, len(scenarios)))
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			return runWorker(gctx, config, jobs, &c)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("simulation aborted: %w", err)
	}

	stats.Submitted = int(c.submitted.Load())
	stats.Duplicates = int(c.duplicates.Load())
	stats.Failed = int(c.failed.Load())
	stats.Matched = int(c.matched.Load())
	stats.Mismatched = int(c.mismatched.Load())
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	if config.OutputFile != "" {
		if err := SaveScenarios(ctx, config.OutputFile, scenarios); err != nil {
			return stats, err
		}
	}

	LogStats(ctx, stats)
	if stats.Mismatched > 0 {
		return stats, fmt.Errorf("%w: %d of %d scenarios", ErrMismatch, stats.Mismatched, stats.ScenariosGenerated)
	}
	return stats, nil
}

// runWorker signs in once and replays scenarios on that session.
func runWorker(ctx context.Context, config *Config, jobs <-chan job, c *counters) error {
	client, err := NewClient(config.BaseURL, config.Timeout)
	if err != nil {
		return err
	}
	if err := client.Login(ctx, config.Email, config.Password); err != nil {
		return err
	}
	defer func() { _ = client.Logout(context.Background()) }()

	for j := range jobs {
		if err := replay(ctx, client, j, c, config.Verbose); err != nil {
			c.failed.Add(1)
			logger.Get().Warn(ctx, "scenario failed",
				logger.Int("scenario", j.scenario.ID),
				logger.Error(err))
		}
	}
	return ctx.Err()
}

func replay(ctx context.Context, client *Client, j job, c *counters, verbose bool) error {
	if err := client.Reset(ctx); err != nil {
		return err
	}

	var lastID string
	var last Reading
	for _, r := range j.order {
		lastID, last = uuid.NewString(), r
		if _, err := client.Submit(ctx, r, lastID); err != nil {
			return err
		}
		c.submitted.Add(1)
	}

	// Replaying the final submission must not append a fourth reading.
	dup, err := client.Submit(ctx, last, lastID)
	if err != nil {
		return err
	}
	if dup {
		c.duplicates.Add(1)
	}

	got, set, err := client.Prediction(ctx)
	if err != nil {
		return err
	}

	want := j.scenario.Expected
	if !set || !dup || got.Time != want.Time || got.Confidence != want.Confidence {
		c.mismatched.Add(1)
		logger.Get().Warn(ctx, "prediction mismatch",
			logger.Int("scenario", j.scenario.ID),
			logger.String("regime", j.scenario.Regime),
			logger.String("wantTime", want.Time),
			logger.String("gotTime", got.Time),
			logger.Float64("wantConfidence", want.Confidence),
			logger.Float64("gotConfidence", got.Confidence),
			logger.Bool("duplicateAcknowledged", dup))
		return nil
	}

	c.matched.Add(1)
	if verbose {
		logger.Get().Info(ctx, "scenario verified",
			logger.Int("scenario", j.scenario.ID),
			logger.String("regime", j.scenario.Regime),
			logger.String("target", got.Time),
			logger.Float64("confidence", got.Confidence))
	}
	return nil
}

// SaveScenarios writes scenarios as an indented JSON array.
func SaveScenarios(ctx context.Context, filename string, scenarios []Scenario) error {
	if len(scenarios) == 0 {
		return fmt.Errorf("no scenarios to save")
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(scenarios, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal scenarios: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), filePermission); err != nil {
		return fmt.Errorf("failed to write scenarios: %w", err)
	}

	logger.Get().Info(ctx, "scenarios saved to file", logger.String("filename", filename))
	return nil
}

// LogStats logs the final run statistics.
func LogStats(ctx context.Context, stats *Stats) {
	var matchRate, perSecond float64
	if stats.ScenariosGenerated > 0 {
		matchRate = float64(stats.Matched) / float64(stats.ScenariosGenerated) * percentMultiplier
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("scenariosGenerated", stats.ScenariosGenerated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("duplicates", stats.Duplicates),
		logger.Int("failed", stats.Failed),
		logger.Int("matched", stats.Matched),
		logger.Int("mismatched", stats.Mismatched),
		logger.Duration("duration", stats.Duration),
		logger.Float64("matchRate", matchRate),
		logger.Float64("submissionsPerSecond", perSecond))
}
