// Package domain defines the core domain models for instance-state.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain error with a structured error code.
type DomainError struct {
	Code    string // Error code (e.g., "IS-MSG-4000")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Message Errors (MSG)
// ============================================================================

var (
	// ErrMalformedMessage indicates a buffer or operation that violates the wire layout.
	ErrMalformedMessage = NewDomainError("IS-MSG-4000", "malformed message")

	// ErrKeyTooLong indicates a key whose UTF-8 encoding exceeds 255 bytes.
	ErrKeyTooLong = NewDomainError("IS-MSG-4001", "key too long")

	// ErrUnknownOperationKind indicates a kind byte outside the defined enumeration.
	ErrUnknownOperationKind = NewDomainError("IS-MSG-4002", "unknown operation kind")
)

// ============================================================================
// State Errors (STATE)
// ============================================================================

var (
	// ErrAlreadyInitialized indicates Initialize was called more than once.
	ErrAlreadyInitialized = NewDomainError("IS-STATE-4090", "state store already initialized")

	// ErrInitializeTooLate indicates Initialize was called after a Get was served.
	ErrInitializeTooLate = NewDomainError("IS-STATE-4091", "state store initialized after first get")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrInternal indicates an internal server error.
	ErrInternal = NewDomainError("IS-SYS-5000", "internal server error")

	// ErrServiceUnavailable indicates the service is temporarily unavailable.
	ErrServiceUnavailable = NewDomainError("IS-SYS-5030", "service unavailable")

	// ErrRateLimited indicates too many requests.
	ErrRateLimited = NewDomainError("IS-SYS-4290", "too many requests")
)

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("IS-ARG-1001", "invalid argument")
)

var knownErrors = []*DomainError{
	ErrMalformedMessage,
	ErrKeyTooLong,
	ErrUnknownOperationKind,
	ErrAlreadyInitialized,
	ErrInitializeTooLate,
	ErrInternal,
	ErrServiceUnavailable,
	ErrRateLimited,
	ErrInvalidArgument,
}

// ErrorFromCode rebuilds a DomainError received over the wire.
// Unknown codes map to ErrInternal with the original code kept in Details.
func ErrorFromCode(code, message string) *DomainError {
	for _, e := range knownErrors {
		if e.Code == code {
			if message == "" || message == e.Error() {
				return e
			}
			return e.WithDetails(message)
		}
	}
	return ErrInternal.WithDetails(code + ": " + message)
}
