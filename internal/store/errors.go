package store

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageUnavailable matches every failure of the persistence backend.
	// Use errors.Is to detect it through wrapping.
	ErrStorageUnavailable = errors.New("credential storage unavailable")

	// ErrNotFound is returned by Backend.Get when the key is absent.
	ErrNotFound = errors.New("key not found")

	// ErrNoRecord is returned by Store.Load when no complete Credential
	// Record is stored. Partial records are reported the same way.
	ErrNoRecord = errors.New("no credential record")

	// ErrIncompleteRecord is returned by Store.Save for a record missing a field.
	ErrIncompleteRecord = errors.New("incomplete credential record")
)

// UnavailableError describes a backend failure. It matches
// ErrStorageUnavailable and unwraps to the backend's own error.
type UnavailableError struct {
	// Op is the store operation that failed (ready, get, set, remove).
	Op string
	// Key is the storage key involved, empty for ready.
	Key string
	// Err is the underlying backend error.
	Err error
}

// Error implements the error interface.
func (e *UnavailableError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %s: %v", ErrStorageUnavailable, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s %s: %v", ErrStorageUnavailable, e.Op, e.Key, e.Err)
}

// Unwrap returns the underlying backend error.
func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// Is allows errors.Is(err, ErrStorageUnavailable) to match.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrStorageUnavailable
}

func unavailable(op, key string, err error) error {
	return &UnavailableError{Op: op, Key: key, Err: err}
}
