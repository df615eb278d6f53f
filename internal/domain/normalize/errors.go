package normalize

import "errors"

// ErrMalformedMatch marks a match that cannot be normalized. The whole match
// is excluded; callers continue with the rest of the corpus.
var ErrMalformedMatch = errors.New("malformed match")
