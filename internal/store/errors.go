package store

import "errors"

// Errors shared by every store implementation.
var (
	// ErrAccessDenied is returned when the store's access policy rejects the operation.
	ErrAccessDenied = errors.New("access denied by store policy")

	// ErrUnavailable is returned when the store can't be reached or is shutting down.
	ErrUnavailable = errors.New("store unavailable")
)
