package artifacts

import "errors"

// ErrArtifact marks a model file that exists but cannot be used.
var ErrArtifact = errors.New("bad model artifact")
