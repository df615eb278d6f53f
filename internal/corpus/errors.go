package corpus

import "errors"

var (
	// ErrNoMatchFiles is returned when the data directory holds no match files.
	ErrNoMatchFiles = errors.New("no match files found")
	// ErrWriteDataset wraps failures writing the training CSV.
	ErrWriteDataset = errors.New("write dataset")
)
