package features

import "errors"

// ErrBadFeature is returned when a supplied feature value is not numeric.
var ErrBadFeature = errors.New("bad feature value")
