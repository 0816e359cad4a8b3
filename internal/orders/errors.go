package orders

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrEmptyCart     = &ValidationError{Field: "items", Msg: "empty cart"}
	ErrAlreadyExists = errors.New("order already exists")

	ErrInvalidTransition = errors.New("invalid table status transition")
)

// ValidationError is a caller mistake; nothing was written.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// StorageError wraps a failed write. The caller may retry; local state was kept.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage %s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

// Retryable is always true for storage failures.
func (e *StorageError) Retryable() bool { return true }
