package repositories

import "errors"

var (
	// ErrNotFound indicates the requested user does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrEntryNotFound indicates the user exists but the list entry does not.
	ErrEntryNotFound = errors.New("list entry not found")
	// ErrConflict indicates the attempted write would violate a uniqueness constraint.
	ErrConflict = errors.New("record conflict")
)
