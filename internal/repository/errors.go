// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios.  For
// example, ErrForbidden indicates that the current agent is not
// allowed to extend a trail owned by someone else, while ErrNotFound
// signals that a referenced ping does not exist.
package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a record cannot be found.  Handlers should
// translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own.  Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrValidation is returned when a payload is rejected before it reaches
// the store.  Handlers should translate this into an HTTP 400 response.
var ErrValidation = errors.New("validation failed")

// ErrUsernameExists is returned when registering a taken username.
var ErrUsernameExists = errors.New("username already exists")

// StorageError wraps a failure of the underlying persistence layer (driver
// errors, lost connections).  It is surfaced as a 500 and never retried.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage: %s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

// storageErr wraps err as a StorageError unless it is nil or already one of
// the sentinel values above.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden) || errors.Is(err, ErrUsernameExists) {
		return err
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
