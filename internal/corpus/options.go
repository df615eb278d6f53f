package corpus

import (
	"github.com/okian/chase/internal/adapters/repository"
	"github.com/okian/chase/pkg/logger"
)

// Option applies a configuration option to the Builder.
type Option func(*Builder)

// WithWorkers sets the number of ingestion workers.
func WithWorkers(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithQueueSize sets the ingestion queue capacity.
func WithQueueSize(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.queueSize = n
		}
	}
}

// WithDedupeSize pre-sizes the match id dedupe set.
func WithDedupeSize(n int) Option {
	return func(b *Builder) {
		if n >= 0 {
			b.dedupeSize = n
		}
	}
}

// WithStore persists rows and the form table after a build.
func WithStore(s repository.Store) Option {
	return func(b *Builder) { b.store = s }
}

// WithOutput sets the training CSV path. Empty skips the CSV.
func WithOutput(path string) Option {
	return func(b *Builder) { b.outCSV = path }
}

// WithLogger sets a custom logger for the builder.
func WithLogger(l logger.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}
