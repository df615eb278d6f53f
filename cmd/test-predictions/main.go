package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/chase/internal/testpredict"
)

const (
	defaultRequests    = 1000
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultRetries     = 3
	defaultTimeout     = 10 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		baseURL    = flag.String("url", "http://localhost:8080", "Base URL of the service")
		requests   = flag.Int("requests", defaultRequests, "Number of states to generate and submit")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		rps        = flag.Float64("rps", 0, "Request rate limit, 0 for unlimited")
		retries    = flag.Int("retries", defaultRetries, "Retries for network errors, 429 and 502-504")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		seed       = flag.Uint64("seed", 0, "Generator seed, 0 for a random one")
		outputFile = flag.String("output", "", "Write samples and results to this JSON file")
		logFile    = flag.String("log", "", "Log file for test output (default: test_log_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Log every failed sample")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testpredict.ShowHelp(os.Stdout)
		return 0
	}

	closer, err := testpredict.SetupLogging(*logFile)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return 1
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultTestTimeout)
	defer cancel()

	cfg := &testpredict.Config{
		BaseURL:    *baseURL,
		Requests:   *requests,
		Workers:    *workers,
		RPS:        *rps,
		Timeout:    *timeout,
		MaxRetries: *retries,
		Seed:       *seed,
		OutputFile: *outputFile,
		Verbose:    *verbose,
	}

	if _, err := testpredict.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Test failed: " + err.Error() + "\n")
		return 1
	}
	return 0
}
