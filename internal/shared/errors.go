package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates the resource already exists or is in a conflicting state.
	ErrConflict = errors.New("conflict")
)
