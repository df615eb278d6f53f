package matchfile

import "errors"

var (
	// ErrUnsupportedFormat is returned when a file is neither JSON nor YAML,
	// or its root is not a match document.
	ErrUnsupportedFormat = errors.New("unsupported match file format")
	// ErrBadRecord marks a match document with a field of the wrong shape.
	ErrBadRecord = errors.New("bad match record")
)
