package testpredict

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/chase/pkg/logger"
)

const directoryPermission = 0o750

// ErrRunFailed is returned when any sample was not answered consistently.
var ErrRunFailed = errors.New("prediction run failed")

// Run checks the service, submits cfg.Requests generated states across
// cfg.Workers goroutines and verifies each answer. The returned stats are
// valid even when an error is returned.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{RunID: uuid.NewString(), StartTime: time.Now()}
	log := logger.Named("testpredict")
	log.Info(ctx, "starting prediction test",
		logger.String("run_id", stats.RunID),
		logger.String("base_url", cfg.BaseURL),
		logger.Int("requests", cfg.Requests),
		logger.Int("workers", cfg.Workers),
		logger.Float64("rps", cfg.RPS),
		logger.Duration("timeout", cfg.Timeout))

	client := NewClient(cfg, stats.RunID)
	defer client.Close()

	if err := client.CheckHealth(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	samples := Generate(cfg.Requests, cfg.Seed)
	stats.Generated = len(samples)

	submit(ctx, cfg, client, samples, stats)

	if cfg.OutputFile != "" {
		if err := saveSamples(cfg.OutputFile, samples); err != nil {
			log.Warn(ctx, "failed to save samples", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	log.Info(ctx, "prediction test finished",
		logger.String("run_id", stats.RunID),
		logger.Int("submitted", stats.Submitted),
		logger.Int("successful", stats.Successful),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.Int("invalid", stats.Invalid),
		logger.Duration("mean_latency", stats.MeanLatency),
		logger.Duration("max_latency", stats.MaxLatency),
		logger.Duration("duration", stats.Duration))

	if stats.Successful != stats.Generated {
		return stats, fmt.Errorf("%w: %d of %d samples not answered consistently",
			ErrRunFailed, stats.Generated-stats.Successful, stats.Generated)
	}
	return stats, ctx.Err()
}

func submit(ctx context.Context, cfg *Config, client *Client, samples []Sample, stats *Stats) {
	log := logger.Named("testpredict")
	var (
		next                                     atomic.Int64
		submitted, ok, rejected, failed, invalid atomic.Int64
		totalLatency, maxLatency                 atomic.Int64
		wg                                       sync.WaitGroup
	)

	for range max(1, cfg.Workers) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(next.Add(1) - 1)
				if i >= len(samples) || ctx.Err() != nil {
					return
				}
				s := &samples[i]
				client.PredictState(ctx, s)
				submitted.Add(1)
				totalLatency.Add(int64(s.Duration))
				for {
					cur := maxLatency.Load()
					if int64(s.Duration) <= cur || maxLatency.CompareAndSwap(cur, int64(s.Duration)) {
						break
					}
				}

				switch {
				case s.Result != nil:
					if err := Verify(*s.Result); err != nil {
						s.Error = err.Error()
						invalid.Add(1)
					} else {
						ok.Add(1)
						continue
					}
				case s.Status >= 400 && s.Status < 500:
					rejected.Add(1)
				default:
					failed.Add(1)
				}
				if cfg.Verbose {
					log.Warn(ctx, "sample failed",
						logger.String("id", s.ID),
						logger.Int("status", s.Status),
						logger.String("error", s.Error))
				}
			}
		}()
	}
	wg.Wait()

	stats.Submitted = int(submitted.Load())
	stats.Successful = int(ok.Load())
	stats.Rejected = int(rejected.Load())
	stats.Failed = int(failed.Load())
	stats.Invalid = int(invalid.Load())
	stats.MaxLatency = time.Duration(maxLatency.Load())
	if stats.Submitted > 0 {
		stats.MeanLatency = time.Duration(totalLatency.Load() / int64(stats.Submitted))
	}
}

func saveSamples(path string, samples []Sample) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	raw, err := json.MarshalIndent(samples, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}
