// Package errors provides custom error types for the gamelog system.
// These errors enable programmatic error checking and keep expected
// outcomes (a game missing from a remote source, an empty partial-mode
// pass) distinct from genuine failures (a remote source being down, a
// malformed catalog row).
package errors

import (
	"errors"
	"fmt"
	"net"
	"net/http"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is reports whether any error in err's tree matches target.
// It's an alias for the standard library errors.Is for convenience.
var Is = errors.Is

// As finds the first error in err's tree that matches target.
// It's an alias for the standard library errors.As for convenience.
var As = errors.As

// Common sentinel errors for the gamelog system
var (
	// ErrNotFound indicates that a requested record was not found.
	// For source adapters this is a normal, non-error outcome with a
	// defined merge policy, not a failure.
	ErrNotFound = errors.New("not found")

	// ErrSourceUnavailable indicates that a remote source could not be
	// reached or answered with a remote-side failure. It is never
	// conflated with ErrNotFound.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrNothingToSync indicates a partial-mode pass found zero eligible
	// rows. Reported to the caller, not treated as a failure.
	ErrNothingToSync = errors.New("nothing to synchronize")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrRateLimited indicates that a remote rate limit has been exceeded
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")
)

// NotFoundError represents a record that was not found.
type NotFoundError struct {
	Resource string
	Name     string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.Name)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, name string) *NotFoundError {
	return &NotFoundError{Resource: resource, Name: name}
}

// ValidationError represents a validation failure on a catalog row field.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// SourceError represents a failure talking to an external source
// (network error, timeout, remote-side error status). It is the
// "source unavailable" condition of the synchronizer: recorded per-row,
// never aborting the batch.
type SourceError struct {
	Source     string // Source kind as string
	StatusCode int
	Endpoint   string
	Message    string
	Err        error
}

// Error implements the error interface
func (e *SourceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("source %s unavailable (status %d): %s", e.Source, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("source %s unavailable: %s", e.Source, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *SourceError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support. Every SourceError is
// ErrSourceUnavailable; a 429 answer additionally matches ErrRateLimited
// and a timed-out transport call additionally matches ErrTimeout.
func (e *SourceError) Is(target error) bool {
	switch target {
	case ErrSourceUnavailable:
		return true
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	case ErrTimeout:
		var netErr net.Error
		return errors.As(e.Err, &netErr) && netErr.Timeout()
	}
	return false
}

// NewSourceError creates a new SourceError
func NewSourceError(source, endpoint, message string, err error) *SourceError {
	return &SourceError{Source: source, Endpoint: endpoint, Message: message, Err: err}
}

// DataError represents a rebuild-time integrity failure caused by a
// malformed row in the tabular snapshot. It names the offending row so
// the operator can fix the spreadsheet; the rebuild that raised it was
// abandoned with the previous database left intact.
type DataError struct {
	Row   int    // 1-based row number in the tabular store
	Game  string // display name of the offending row, if known
	Field string
	Value any
	Err   error
}

// Error implements the error interface
func (e *DataError) Error() string {
	if e.Game != "" {
		return fmt.Sprintf("bad data in row %d (%s), field %s: %v", e.Row, e.Game, e.Field, e.Value)
	}
	return fmt.Sprintf("bad data in row %d, field %s: %v", e.Row, e.Field, e.Value)
}

// Unwrap implements errors.Unwrap
func (e *DataError) Unwrap() error {
	return e.Err
}

// SchemaError represents a rebuild-time failure creating or loading the
// relational schema. Like DataError it aborts the whole rebuild.
type SchemaError struct {
	Statement string
	Err       error
}

// Error implements the error interface
func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error executing %q: %v", truncate(e.Statement, 60), e.Err)
}

// Unwrap implements errors.Unwrap
func (e *SchemaError) Unwrap() error {
	return e.Err
}

// ParseError represents an error parsing a remote payload or file format.
type ParseError struct {
	Format  string // "json", "html", "xlsx", etc.
	Subject string // what was being parsed
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("failed to parse %s from %s: %s", e.Format, e.Subject, e.Message)
	}
	return fmt.Sprintf("failed to parse %s: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// IOError represents a file system operation error.
type IOError struct {
	Operation string // "read", "write", "rename", etc.
	Path      string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// Helper wrapping functions for common patterns

// WrapParse wraps an error as a ParseError
func WrapParse(format, subject string, err error) error {
	if err == nil {
		return nil
	}
	return &ParseError{Format: format, Subject: subject, Message: err.Error(), Err: err}
}

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Operation: operation, Path: path, Err: err}
}

// WrapSource wraps an error as a SourceError
func WrapSource(source, endpoint string, err error) error {
	if err == nil {
		return nil
	}
	return &SourceError{Source: source, Endpoint: endpoint, Message: err.Error(), Err: err}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
