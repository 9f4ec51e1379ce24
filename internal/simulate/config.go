// Package simulate replays generated observation scenarios against a running
// dashboard and checks the served predictions against the local engine.
package simulate

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Email      string        // Operator email used to sign in
	Password   string        // Operator password
	Scenarios  int           // Number of scenarios to generate
	Workers    int           // Concurrent sessions; each worker signs in once
	Timeout    time.Duration // HTTP request timeout
	Seed       uint64        // Generator seed; 0 picks one from the clock
	OutputFile string        // Output file for scenarios
	LogFile    string        // Log file for run output
	Verbose    bool          // Log every scenario
}

// Reading is one observation as submitted over the API.
type Reading struct {
	Time  string  `json:"time"`
	Value float64 `json:"value"`
}

// Expected is the prediction the local engine computed for a scenario.
type Expected struct {
	Time       string  `json:"time"`
	Confidence float64 `json:"confidence"`
	Regime     string  `json:"regime"`
}

// Scenario is three readings plus the prediction they should produce.
type Scenario struct {
	ID       int       `json:"id"`
	Regime   string    `json:"regime"`
	Readings []Reading `json:"readings"`
	Expected Expected  `json:"expected"`
}

// Stats holds run statistics.
type Stats struct {
	ScenariosGenerated int
	Submitted          int
	Duplicates         int
	Failed             int
	Matched            int
	Mismatched         int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
