package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/roach88/batonset/internal/contest"
	"github.com/roach88/batonset/internal/engine"
	"github.com/roach88/batonset/internal/store"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Domain failure (invalid data, unresolved conflicts, failed scenarios)
	ExitCommandError = 2 // Command error (bad arguments, missing files, database errors)
)

// Error codes reported in CLIError.Code besides the contest.ErrorCode
// values.
const (
	ErrCodeGeneric    = "ERROR"
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeUnresolved = "UNRESOLVED_CONFLICT"
	ErrCodeTestFailed = "TEST_FAILED"
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// classify maps an engine or store error to a CLI error code and exit code.
// Contest errors keep their own code; a missing row is a command error.
func classify(err error) (string, int) {
	var cerr *contest.Error
	switch {
	case errors.As(err, &cerr):
		return string(cerr.Code), ExitFailure
	case engine.IsUnresolvedConflictError(err):
		return ErrCodeUnresolved, ExitFailure
	case errors.Is(err, store.ErrNotFound):
		return ErrCodeNotFound, ExitCommandError
	default:
		return ErrCodeGeneric, ExitCommandError
	}
}

// details returns the structured details of a contest error, if any.
func details(err error) any {
	var cerr *contest.Error
	if errors.As(err, &cerr) && len(cerr.Details) > 0 {
		return cerr.Details
	}
	var uerr *engine.UnresolvedConflictError
	if errors.As(err, &uerr) {
		return uerr.Conflicts
	}
	return nil
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "VALIDATION", "NOT_FOUND", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format. Text
// output prints text; JSON output wraps data.
func (f *OutputFormatter) Success(data any, text string) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, text)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports err and returns it as an ExitError carrying its exit code.
func (f *OutputFormatter) Fail(message string, err error) error {
	code, exit := classify(err)
	if outErr := f.Error(code, fmt.Sprintf("%s: %v", message, err), details(err)); outErr != nil {
		return outErr
	}
	return WrapExitError(exit, message, err)
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	return encodeIndented(f.Writer, resp)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
