package medialists

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput indicates a required field is missing or malformed.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict indicates the operation would break email or username uniqueness.
	ErrConflict = errors.New("conflict")
	// ErrNotFound is the parent of every lookup failure.
	ErrNotFound = errors.New("not found")
	// ErrUserNotFound indicates no user is registered for the email.
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)
	// ErrEntryNotFound indicates the user has no list entry for the media id.
	ErrEntryNotFound = fmt.Errorf("media entry %w", ErrNotFound)
	// ErrStorageUnavailable wraps failures of the underlying user store.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

func invalidInput(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorageUnavailable, op, err)
}
