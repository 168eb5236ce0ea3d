package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/batonset/internal/conflict"
	"github.com/roach88/batonset/internal/contest"
)

// StoreError wraps a storage failure met during a run. The underlying
// error is kept unchanged so errors.Is(err, store.ErrNotFound) still works.
type StoreError struct {
	// Op names the store operation that failed.
	Op string

	// Err is the store's error.
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

// Unwrap returns the store's error.
func (e *StoreError) Unwrap() error { return e.Err }

// IsStoreError reports whether err wraps a StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// storeErr passes domain errors raised by the store through unchanged and
// wraps everything else in a StoreError.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var ce *contest.Error
	if errors.As(err, &ce) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// UnresolvedConflictError reports critical conflicts that no lane swap
// removed. The running order is still persisted, with the implicated
// cells flagged; callers decide whether the report is fatal.
type UnresolvedConflictError struct {
	ContestID int64
	Conflicts []conflict.Conflict
}

// Error implements the error interface.
func (e *UnresolvedConflictError) Error() string {
	if len(e.Conflicts) == 1 {
		return fmt.Sprintf("UNRESOLVED_CONFLICT: %s (contest=%d)", e.Conflicts[0].Message, e.ContestID)
	}
	return fmt.Sprintf("UNRESOLVED_CONFLICT: %d critical conflicts remain (contest=%d)", len(e.Conflicts), e.ContestID)
}

// IsUnresolvedConflictError reports whether err wraps an
// UnresolvedConflictError.
func IsUnresolvedConflictError(err error) bool {
	var ue *UnresolvedConflictError
	return errors.As(err, &ue)
}
