// Package apperrors defines structured application error types,
// allowing for a clear distinction between error classes (configuration,
// input validation, simulation resources, internal invariants) and for
// carrying the underlying cause.
//
// Error Wrapping Guidelines:
// This package follows Go's error wrapping conventions using fmt.Errorf with %w.
// Types carrying a cause implement Unwrap() to support errors.Is() and errors.As().
package apperrors

import (
	"context"
	"errors"
	"fmt"
)

// Application exit codes define the standard exit statuses for the application.
// These codes are used to signal the outcome of the program execution to the OS.
const (
	ExitSuccess       = 0   // Indicates successful execution.
	ExitErrorGeneric  = 1   // Indicates a generic error.
	ExitErrorTimeout  = 2   // Indicates the operation timed out.
	ExitErrorMismatch = 3   // Indicates the recovered periods disagree with the classical check.
	ExitErrorConfig   = 4   // Indicates a configuration error.
	ExitErrorResource = 5   // Indicates the requested circuit exceeds the simulation ceiling.
	ExitErrorCanceled = 130 // Indicates the operation was canceled (e.g., SIGINT).
)

// ConfigError represents a user configuration error, such as invalid flags or
// values. It indicates that the application cannot proceed due to incorrect user input.
type ConfigError struct {
	// Message explains the specific configuration error.
	Message string
}

// Error returns the error message for a ConfigError.
func (e ConfigError) Error() string { return e.Message }

// NewConfigError creates a new ConfigError with a formatted message.
//
// Parameters:
//   - format: A format string (see fmt.Sprintf).
//   - a: Arguments to be formatted into the string.
//
// Returns:
//   - error: A new ConfigError instance containing the formatted message.
func NewConfigError(format string, a ...any) error {
	return ConfigError{Message: fmt.Sprintf(format, a...)}
}

// InvalidModulusError is returned when the modulus of the recurrence is not a
// positive integer. It is raised before any circuit construction.
type InvalidModulusError struct {
	Modulus int64
}

func (e InvalidModulusError) Error() string {
	return fmt.Sprintf("invalid modulus %d: must be a positive integer", e.Modulus)
}

// ResourceError reports that the qubit count implied by a request exceeds the
// configured simulation ceiling. It is always raised before state allocation.
type ResourceError struct {
	// Qubits is the number of qubits the request would require.
	Qubits int
	// Limit is the configured ceiling.
	Limit int
}

func (e ResourceError) Error() string {
	return fmt.Sprintf("circuit needs %d qubits, simulation ceiling is %d", e.Qubits, e.Limit)
}

// RegisterMismatchError describes an arithmetic builder invocation with
// inconsistent register lengths. It is a programming-contract violation and is
// raised through panic by the builder.
type RegisterMismatchError struct {
	// Op names the builder operation (e.g., "adder").
	Op string
	// Detail explains which lengths disagree.
	Detail string
}

func (e *RegisterMismatchError) Error() string {
	return fmt.Sprintf("%s: register mismatch: %s", e.Op, e.Detail)
}

// NewRegisterMismatch creates a RegisterMismatchError with a formatted detail.
func NewRegisterMismatch(op, format string, a ...any) *RegisterMismatchError {
	return &RegisterMismatchError{Op: op, Detail: fmt.Sprintf(format, a...)}
}

// NormalizationError signals that a simulated state drifted away from unit
// norm. It indicates an implementation defect and is never retried.
type NormalizationError struct {
	// Norm is the observed total probability.
	Norm float64
	// Tolerance is the accepted deviation from 1.
	Tolerance float64
}

func (e NormalizationError) Error() string {
	return fmt.Sprintf("state normalization drift: total probability %.15f exceeds tolerance %g", e.Norm, e.Tolerance)
}

// AncillaError signals that an ancilla register was not restored to zero after
// the circuit completed.
type AncillaError struct {
	Register string
	Value    uint64
}

func (e AncillaError) Error() string {
	return fmt.Sprintf("ancilla register %q left at %d, expected 0", e.Register, e.Value)
}

// EstimationError encapsulates a failed estimation run while preserving the
// original cause and the modulus it was run for.
type EstimationError struct {
	// Modulus is the N the run was estimating.
	Modulus uint64
	// Cause is the underlying error that triggered this error.
	Cause error
}

// Error returns the error message from the underlying cause.
func (e EstimationError) Error() string {
	return fmt.Sprintf("estimation for N=%d failed: %v", e.Modulus, e.Cause)
}

// Unwrap returns the original wrapped error.
func (e EstimationError) Unwrap() error { return e.Cause }

// ServerError represents errors that occur in the HTTP server component.
// It wraps an underlying error with additional context specific to the server operation.
type ServerError struct {
	// Message is a descriptive message about the server error.
	Message string
	// Cause is the underlying error, if any.
	Cause error
}

// Error returns the error message for a ServerError.
// It combines the descriptive message and the underlying cause if present.
func (e ServerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e ServerError) Unwrap() error { return e.Cause }

// NewServerError creates a new ServerError with a message and optional cause.
func NewServerError(message string, cause error) error {
	return ServerError{Message: message, Cause: cause}
}

// WrapError wraps an error with additional context using fmt.Errorf and %w.
//
// Parameters:
//   - err: The error to wrap.
//   - format: A format string for the context message.
//   - args: Arguments for the format string.
//
// Returns:
//   - error: The wrapped error, or nil if err is nil.
func WrapError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// IsContextError checks if the error is a context cancellation or deadline exceeded error.
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// IsInputError reports whether err is a deterministic input-validation failure
// (invalid modulus or resource ceiling) that no retry can fix.
func IsInputError(err error) bool {
	var modErr InvalidModulusError
	var resErr ResourceError
	var valErr ValidationError
	return errors.As(err, &modErr) || errors.As(err, &resErr) || errors.As(err, &valErr)
}

// ValidationError represents an error due to invalid input validation.
// It is used for API request validation and configuration validation.
type ValidationError struct {
	// Field is the name of the field that failed validation.
	Field string
	// Message describes why validation failed.
	Message string
	// Value is the invalid value (optional, may be nil).
	Value any
}

// Error returns the error message for a ValidationError.
func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error for '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string, value any) error {
	return ValidationError{Field: field, Message: message, Value: value}
}
