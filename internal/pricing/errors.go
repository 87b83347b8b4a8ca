package pricing

import "errors"

var (
	// ErrInvalidObservation means the observation payload is unusable
	// (e.g. non-positive noise variance). Not retryable; the caller must fix it.
	ErrInvalidObservation = errors.New("invalid observation")

	// ErrNoStateAvailable means no demand state exists for the requested bucket.
	// The caller falls back to a default quote.
	ErrNoStateAvailable = errors.New("no state available")
)
