package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the stores and services. Callers map them to
// transport responses; nothing in this package retries.
var (
	// ErrInvalidArgument reports a caller-supplied argument that failed
	// validation before any I/O happened.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound reports a lookup that matched no rows.
	ErrNotFound = errors.New("not found")

	// ErrConnection reports a failure opening a storage connection.
	ErrConnection = errors.New("storage connection failed")

	// ErrCancelled reports a cancellation observed at an operation entry
	// point. In-flight I/O is not interrupted.
	ErrCancelled = errors.New("operation cancelled")

	// ErrEmailTaken reports an email address already bound to a different
	// account during external-login resolution.
	ErrEmailTaken = errors.New("email already bound to an account")

	// ErrUpdateRolledBack reports a multi-table user update whose commit
	// failed and whose rollback succeeded. Nothing was applied.
	ErrUpdateRolledBack = errors.New("update failed, changes rolled back")

	// ErrUpdateRollbackFailed reports a multi-table user update whose commit
	// failed and whose rollback also failed. The row state is undefined and
	// callers should log this variant loudly.
	ErrUpdateRollbackFailed = errors.New("update failed, rollback also failed")
)

// ConflictError reports a write whose affected-row count did not match the
// expectation, including unique-constraint collisions surfaced by storage.
type ConflictError struct {
	Op     string
	Entity string
	Err    error
}

func (e *ConflictError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: conflict: %v", e.Op, e.Entity, e.Err)
	}
	return fmt.Sprintf("%s %s: conflict", e.Op, e.Entity)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// IsConflict reports whether err is (or wraps) a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
