// Package testpredict drives concurrent prediction traffic against a running
// server and checks every answer for consistency.
package testpredict

import (
	"time"

	"github.com/okian/chase/internal/domain/types"
)

// Config holds configuration for a prediction run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Requests   int           // Number of states to generate and submit
	Workers    int           // Number of concurrent workers
	RPS        float64       // Request rate limit; <= 0 is unlimited
	Timeout    time.Duration // Per-request timeout
	MaxRetries int           // Retries for network errors and 5xx/429
	Seed       uint64        // Generator seed; 0 picks one from the clock
	OutputFile string        // Optional JSON file of samples and results
	Verbose    bool          // Log every failed sample
}

// Sample is one generated state and what the server made of it.
type Sample struct {
	ID       string                 `json:"id"`
	State    types.StateRequest     `json:"state"`
	Result   *types.StatePrediction `json:"result,omitempty"`
	Status   int                    `json:"status"`
	Error    string                 `json:"error,omitempty"`
	Duration time.Duration          `json:"duration_ns"`
}

// Stats holds run statistics.
type Stats struct {
	RunID       string
	Generated   int
	Submitted   int
	Successful  int
	Rejected    int // 4xx
	Failed      int // transport errors and 5xx
	Invalid     int // 200 with an inconsistent body
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	MeanLatency time.Duration
	MaxLatency  time.Duration
}
