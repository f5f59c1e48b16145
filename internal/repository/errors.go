package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict indicates a unique constraint was violated.
	ErrConflict = errors.New("repository: conflict")
	// ErrSoleAdmin indicates the change would leave no other active admin.
	ErrSoleAdmin = errors.New("repository: sole active admin")
)
