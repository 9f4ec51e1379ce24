package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/cadence/internal/simulate"
)

// Default configuration constants.
const (
	defaultScenarios = 300
	defaultWorkers   = 2 // multiplier for runtime.NumCPU()
	defaultTimeout   = 30 * time.Second
	defaultRunLimit  = 10 * time.Minute
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := &simulate.Config{}

	cmd := &cobra.Command{
		Use:   "cadence-sim",
		Short: "Replay generated observations against a cadence dashboard",
		Long: `cadence-sim signs in to a running dashboard, submits generated
observation scenarios in shuffled order, replays one submission id per
scenario, and checks every served prediction against the local engine.

Examples:
  cadence-sim --url http://localhost:9080
  cadence-sim --scenarios 3000 --workers 16 --seed 42 --output scenarios.json`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			closer, err := simulate.SetupLogging(cfg.LogFile)
			if err != nil {
				return err
			}
			defer func() { _ = closer.Close() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), defaultRunLimit)
			defer cancel()

			_, err = simulate.Run(ctx, cfg)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "Base URL of the service")
	f.StringVar(&cfg.Email, "email", "operator@cadence.local", "Operator email")
	f.StringVar(&cfg.Password, "password", "cadence", "Operator password")
	f.IntVar(&cfg.Scenarios, "scenarios", defaultScenarios, "Number of scenarios to generate")
	f.IntVar(&cfg.Workers, "workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent sessions")
	f.DurationVar(&cfg.Timeout, "timeout", defaultTimeout, "HTTP request timeout")
	f.Uint64Var(&cfg.Seed, "seed", 0, "Generator seed (0 picks one from the clock)")
	f.StringVar(&cfg.OutputFile, "output", "", "Write generated scenarios to this file")
	f.StringVar(&cfg.LogFile, "log", "", "Log file (default: sim_log_TIMESTAMP.log)")
	f.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Log every verified scenario")
	return cmd
}
