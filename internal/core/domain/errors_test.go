package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name:     "error without details",
			err:      NewDomainError("IS-TEST-1000", "test message"),
			expected: "[IS-TEST-1000] test message",
		},
		{
			name:     "error with details",
			err:      NewDomainError("IS-TEST-1001", "test message").WithDetails("extra info"),
			expected: "[IS-TEST-1001] test message: extra info",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDomainError_Is(t *testing.T) {
	err1 := NewDomainError("IS-TEST-1000", "message 1")
	err2 := NewDomainError("IS-TEST-1000", "message 2")
	err3 := NewDomainError("IS-TEST-1001", "message 1")

	if !errors.Is(err1, err2) {
		t.Error("errors.Is should return true for same error code")
	}
	if errors.Is(err1, err3) {
		t.Error("errors.Is should return false for different error code")
	}
	if errors.Is(err1, fmt.Errorf("some error")) {
		t.Error("errors.Is should return false for non-DomainError")
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("underlying cause")
	err := NewDomainError("IS-TEST-1000", "wrapper").WithCause(cause)

	if unwrapped := errors.Unwrap(err); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	errNoCause := NewDomainError("IS-TEST-1000", "no cause")
	if errors.Unwrap(errNoCause) != nil {
		t.Error("Unwrap() should return nil when no cause")
	}
}

func TestDomainError_WithDetails(t *testing.T) {
	original := NewDomainError("IS-TEST-1000", "original message")
	withDetails := original.WithDetails("additional details")

	if original.Details != "" {
		t.Error("WithDetails should not modify original error")
	}
	if withDetails.Details != "additional details" {
		t.Errorf("Details = %q, want %q", withDetails.Details, "additional details")
	}
	if withDetails.Code != original.Code {
		t.Errorf("Code = %q, want %q", withDetails.Code, original.Code)
	}
}

func TestIsDomainError(t *testing.T) {
	if !IsDomainError(ErrKeyTooLong, "IS-MSG-4001") {
		t.Error("IsDomainError should return true for matching code")
	}
	if IsDomainError(ErrKeyTooLong, "IS-MSG-9999") {
		t.Error("IsDomainError should return false for non-matching code")
	}
	if IsDomainError(fmt.Errorf("regular error"), "") {
		t.Error("IsDomainError should return false for non-DomainError")
	}

	wrapped := fmt.Errorf("wrapped: %w", ErrMalformedMessage)
	if !IsDomainError(wrapped, "IS-MSG-4000") {
		t.Error("IsDomainError should work with wrapped errors")
	}
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"domain error", ErrUnknownOperationKind, "IS-MSG-4002"},
		{"wrapped domain error", fmt.Errorf("wrapped: %w", ErrAlreadyInitialized), "IS-STATE-4090"},
		{"regular error", fmt.Errorf("regular error"), ""},
		{"nil error", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetErrorCode(tt.err); got != tt.expected {
				t.Errorf("GetErrorCode() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		err  *DomainError
		code string
	}{
		{ErrMalformedMessage, "IS-MSG-4000"},
		{ErrKeyTooLong, "IS-MSG-4001"},
		{ErrUnknownOperationKind, "IS-MSG-4002"},
		{ErrAlreadyInitialized, "IS-STATE-4090"},
		{ErrInitializeTooLate, "IS-STATE-4091"},
		{ErrInternal, "IS-SYS-5000"},
		{ErrServiceUnavailable, "IS-SYS-5030"},
		{ErrRateLimited, "IS-SYS-4290"},
		{ErrInvalidArgument, "IS-ARG-1001"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Error code = %q, want %q", tt.err.Code, tt.code)
			}
			if tt.err.Message == "" {
				t.Error("Error message should not be empty")
			}
		})
	}
}

func TestErrorFromCode(t *testing.T) {
	err := ErrorFromCode("IS-MSG-4001", "")
	if err != ErrKeyTooLong {
		t.Errorf("ErrorFromCode() = %v, want ErrKeyTooLong", err)
	}

	err = ErrorFromCode("IS-MSG-4000", "buffer too short")
	if !errors.Is(err, ErrMalformedMessage) {
		t.Errorf("ErrorFromCode() = %v, want ErrMalformedMessage", err)
	}
	if err.Details != "buffer too short" {
		t.Errorf("Details = %q", err.Details)
	}

	err = ErrorFromCode("XX-0000", "boom")
	if !errors.Is(err, ErrInternal) {
		t.Errorf("unknown code should map to ErrInternal, got %v", err)
	}
}
