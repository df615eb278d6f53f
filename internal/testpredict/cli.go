package testpredict

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/chase/pkg/logger"
)

const logFilePermission = 0o600

// SetupLogging sends log output to stdout and to logFile. An empty logFile
// gets a timestamped name. The returned closer flushes and closes the file.
func SetupLogging(logFile string) (io.Closer, error) {
	if logFile == "" {
		logFile = "test_log_" + time.Now().Format("20060102_150405") + ".log"
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}
	if err := logger.InitWithWriter(io.MultiWriter(os.Stdout, file), "text"); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	return file, nil
}

// ShowHelp prints usage information for the prediction test tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `Chase Prediction Test Tool
==========================

Generates random second-innings states, posts them concurrently to
/api/predict/state and checks every response for consistency.

Usage:
  go run ./cmd/test-predictions [options]

Options:
  -url string        Base URL of the service (default "http://localhost:8080")
  -requests int      Number of states to generate and submit (default 1000)
  -workers int       Number of concurrent workers (default 2 x NumCPU)
  -rps float         Request rate limit, 0 for unlimited (default 0)
  -retries int       Retries for network errors, 429 and 502-504 (default 3)
  -timeout duration  HTTP request timeout (default 10s)
  -seed uint         Generator seed, 0 for a random one (default 0)
  -output string     Write samples and results to this JSON file
  -log string        Log file (default test_log_TIMESTAMP.log)
  -verbose           Log every failed sample
  -help              Show this help

The run fails when any response is missing, non-2xx, or inconsistent:
percentages outside [0,100] or a combined value that is not the mean of
the models that answered.
`)
}
