package scoring

import "errors"

var (
	// ErrNoModel is returned when neither model produced a probability.
	ErrNoModel = errors.New("no model available")
	// ErrShapeMismatch marks an artifact whose dimensions do not fit the input.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrScalerRequired marks a model fitted on scaled input with no scaler loaded.
	ErrScalerRequired = errors.New("scaler required")
	// ErrNonFinite marks a model that produced NaN or Inf.
	ErrNonFinite = errors.New("non-finite model output")
	// ErrBadTree marks a malformed tree (bad child index or cycle).
	ErrBadTree = errors.New("malformed tree")
)
