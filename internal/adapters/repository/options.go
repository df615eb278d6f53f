package repository

// Option applies a configuration option to the SQLiteStore.
type Option func(*SQLiteStore)

// WithBatchSize sets how many rows are written per transaction.
func WithBatchSize(n int) Option {
	return func(s *SQLiteStore) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithBusyTimeoutMS sets how long a writer waits on a locked database.
func WithBusyTimeoutMS(ms int) Option {
	return func(s *SQLiteStore) {
		if ms >= 0 {
			s.busyTimeoutMS = ms
		}
	}
}
