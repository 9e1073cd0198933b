package sentinel

import "errors"

// Sentinel dependency errors. Stores return these (optionally wrapped) so
// callers can tell an absent entry from an infrastructure failure.
var (
	ErrNotFound    = errors.New("not found")
	ErrAlreadyUsed = errors.New("already used")
	ErrInvalidData = errors.New("invalid data")
	ErrUnavailable = errors.New("unavailable")
)
