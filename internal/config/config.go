// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() builds a Config with defaults; Load layers file and env on top.
// - Every field carries a koanf tag (flat keys) and validator tags.
package config

import (
	"runtime"
)

// Config contains process configuration for the server and the corpus builder.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required"`

	// ModelDir holds scaler.json, logistic.json, gb.json and gb_calibrated.json.
	ModelDir string `koanf:"model_dir" validate:"required"`

	// FormDB is the SQLite corpus store the server reads player form from.
	// Empty disables form lookups; the median of an empty table is 0.
	FormDB string `koanf:"form_db"`

	// DataDir is scanned for match files by the corpus builder.
	DataDir string `koanf:"data_dir"`

	// OutCSV is the training table written by the corpus builder.
	OutCSV string `koanf:"out_csv"`

	// StorePath is the SQLite file the corpus builder writes.
	StorePath string `koanf:"store_path"`

	// WorkerCount sets the number of ingestion workers.
	WorkerCount int `koanf:"worker_count" validate:"min=1"`

	// QueueSize bounds the ingestion job queue.
	QueueSize int `koanf:"queue_size" validate:"min=1"`

	// DedupeSize pre-sizes the match id dedupe set.
	DedupeSize int `koanf:"dedupe_size" validate:"gte=0"`

	// DefaultOversLimit is used when neither the match file nor the request names one.
	DefaultOversLimit int `koanf:"default_overs_limit" validate:"min=1,max=50"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		ModelDir:          "models",
		FormDB:            "",
		DataDir:           "data",
		OutCSV:            "dataset.csv",
		StorePath:         "corpus.db",
		WorkerCount:       runtime.NumCPU(),
		QueueSize:         1024,
		DedupeSize:        20_000,
		DefaultOversLimit: 20,
	}
}
