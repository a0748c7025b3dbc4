package repo

import "errors"

// Errors shared by all repositories.
var (
	// ErrNotFound means no row matched the query.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists means a uniqueness constraint was violated.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidState means the operation is not allowed in the
	// record's current state.
	ErrInvalidState = errors.New("invalid state")
)
