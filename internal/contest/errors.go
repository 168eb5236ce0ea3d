package contest

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes domain errors.
type ErrorCode string

const (
	// ErrCodeValidation marks malformed configuration or input. Nothing was
	// computed and nothing was written.
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeStructural marks contest data that cannot be scheduled as
	// registered (no eligible judge, contestant outside event constraints).
	// The previously persisted schedule stays valid.
	ErrCodeStructural ErrorCode = "STRUCTURAL"

	// ErrCodeConcurrentModification marks a regeneration computed from stale
	// registration or score data. The caller must refresh and retry.
	ErrCodeConcurrentModification ErrorCode = "CONCURRENT_MODIFICATION"

	// ErrCodeIncompleteScoring marks an event whose judges have not all
	// scored every registered participant.
	ErrCodeIncompleteScoring ErrorCode = "INCOMPLETE_SCORING"
)

// Error is a domain error with structured fields for diagnostics.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Field names the offending input or rule, when there is one.
	Field string

	// Message is a human-readable description.
	Message string

	// ContestID and EventID identify the affected scope (zero when unknown).
	ContestID int64
	EventID   int64

	// Details contains additional context.
	Details map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	scope := ""
	switch {
	case e.ContestID != 0 && e.EventID != 0:
		scope = fmt.Sprintf(" (contest=%d, event=%d)", e.ContestID, e.EventID)
	case e.ContestID != 0:
		scope = fmt.Sprintf(" (contest=%d)", e.ContestID)
	case e.EventID != 0:
		scope = fmt.Sprintf(" (event=%d)", e.EventID)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s%s", e.Code, e.Field, e.Message, scope)
	}
	return fmt.Sprintf("%s: %s%s", e.Code, e.Message, scope)
}

// NewValidationError creates an Error for malformed input.
func NewValidationError(field, message string) *Error {
	return &Error{Code: ErrCodeValidation, Field: field, Message: message}
}

// NewStructuralError creates an Error for unschedulable contest data.
func NewStructuralError(contestID int64, message string, details map[string]string) *Error {
	return &Error{Code: ErrCodeStructural, Message: message, ContestID: contestID, Details: details}
}

// NewConcurrentModificationError creates an Error for a stale regeneration.
func NewConcurrentModificationError(contestID int64, expected, actual int64) *Error {
	return &Error{
		Code:      ErrCodeConcurrentModification,
		Message:   fmt.Sprintf("contest data changed during run (revision %d, now %d)", expected, actual),
		ContestID: contestID,
		Details: map[string]string{
			"expected_revision": fmt.Sprintf("%d", expected),
			"actual_revision":   fmt.Sprintf("%d", actual),
		},
	}
}

// NewIncompleteScoringError creates an Error for an event that is not fully scored.
func NewIncompleteScoringError(eventID int64, message string) *Error {
	return &Error{Code: ErrCodeIncompleteScoring, Message: message, EventID: eventID}
}

// IsValidationError reports whether err wraps a validation Error.
func IsValidationError(err error) bool { return hasCode(err, ErrCodeValidation) }

// IsStructuralError reports whether err wraps a structural Error.
func IsStructuralError(err error) bool { return hasCode(err, ErrCodeStructural) }

// IsConcurrentModificationError reports whether err wraps a stale-data Error.
func IsConcurrentModificationError(err error) bool {
	return hasCode(err, ErrCodeConcurrentModification)
}

// IsIncompleteScoringError reports whether err wraps an incomplete-scoring Error.
func IsIncompleteScoringError(err error) bool { return hasCode(err, ErrCodeIncompleteScoring) }

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
