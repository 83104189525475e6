package contracts

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a log, seal, or binding lookup misses.
var ErrNotFound = errors.New("not found")

// ErrInvalidState is returned when a recorder operation is called out of
// sequence (append after finalize, double finalize).
var ErrInvalidState = errors.New("invalid recorder state")

// TetherError is the fail-closed precondition failure: the persisted
// contract descriptor does not match the running code's expectations.
// It aborts the gated operation before any side effect.
type TetherError struct {
	ModuleID string
	Reason   string
}

func (e *TetherError) Error() string {
	return fmt.Sprintf("tether check failed for %s: %s", e.ModuleID, e.Reason)
}

// SchemaValidationError is returned when a binding does not conform to the
// external schema. Nothing is persisted.
type SchemaValidationError struct {
	Resource string
	Err      error
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("schema validation failed for %s: %v", e.Resource, e.Err)
}

func (e *SchemaValidationError) Unwrap() error { return e.Err }

// StorageError wraps an I/O failure. Surfaced as a failed operation
// result, never silently swallowed; retry is at the caller's discretion.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed for %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
