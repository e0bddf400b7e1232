package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Caches and stores return these
// (optionally wrapped) so callers can decide between fallback and failure:
// - ErrNotFound: key or artifact does not exist
// - ErrUnavailable: backing service temporarily unavailable
// - ErrInvalidState: stored payload cannot be decoded
var (
	ErrNotFound     = errors.New("not found")
	ErrUnavailable  = errors.New("unavailable")
	ErrInvalidState = errors.New("invalid state")
)
