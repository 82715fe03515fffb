package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "message only",
			err:      &Error{Code: EINVALID, Message: "quantity must be at least 1"},
			expected: "quantity must be at least 1",
		},
		{
			name:     "with operation",
			err:      &Error{Code: EINVALID, Op: "invoice.create", Message: "quantity must be at least 1"},
			expected: "invoice.create: quantity must be at least 1",
		},
		{
			name: "with wrapped error",
			err: &Error{
				Code:    EINTERNAL,
				Op:      "invoice.create",
				Message: "failed to save invoice",
				Err:     errors.New("connection refused"),
			},
			expected: "invoice.create: failed to save invoice: connection refused",
		},
		{
			name: "wrapped error without op",
			err: &Error{
				Code:    EEXTERNAL,
				Message: "payment link failed",
				Err:     errors.New("timeout"),
			},
			expected: "payment link failed: timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error.Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := External(underlying, "billing.create_link", "payment link failed")

	if !errors.Is(err, underlying) {
		t.Error("errors.Is should find underlying error")
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "nil error", err: nil, expected: ""},
		{name: "domain error", err: &Error{Code: EINVALID}, expected: EINVALID},
		{name: "wrapped domain error", err: fmt.Errorf("wrapped: %w", &Error{Code: ENOTFOUND}), expected: ENOTFOUND},
		{name: "validation error", err: NewValidationError("client.create", "email", "is required"), expected: EINVALID},
		{name: "external error", err: External(errors.New("boom"), "", "x"), expected: EEXTERNAL},
		{name: "non-domain error", err: errors.New("some error"), expected: EINTERNAL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorCode(tt.err); got != tt.expected {
				t.Errorf("ErrorCode() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "nil error", err: nil, expected: ""},
		{name: "invalid error shows message", err: Invalid("op", "due date is required"), expected: "due date is required"},
		{name: "internal error hides details", err: Internal(errors.New("pq: relation missing"), "op", "db failed"), expected: "An internal error occurred. Please try again later."},
		{name: "unknown error hides details", err: errors.New("secret"), expected: "An internal error occurred. Please try again later."},
		{name: "validation error", err: NewValidationError("op", "email", "is required"), expected: "email: is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorMessage(tt.err); got != tt.expected {
				t.Errorf("ErrorMessage() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestErrorOp(t *testing.T) {
	if got := ErrorOp(Conflict("client.create", "duplicate")); got != "client.create" {
		t.Errorf("ErrorOp() = %q, want %q", got, "client.create")
	}
	if got := ErrorOp(errors.New("plain")); got != "" {
		t.Errorf("ErrorOp() = %q, want empty", got)
	}
}

func TestWrapError_Nil(t *testing.T) {
	if err := WrapError(nil, EINTERNAL, "op", "msg"); err != nil {
		t.Errorf("WrapError(nil) = %v, want nil", err)
	}
}

func TestAddFieldError(t *testing.T) {
	err := NewValidationError("settings.update", "defaultTaxRate", "must be between 0 and 100")
	err = AddFieldError(err, "businessName", "is required")

	fields := GetValidationFields(err)
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}
	if fields["businessName"] != "is required" {
		t.Errorf("businessName = %q", fields["businessName"])
	}
	if !IsValidationError(err) {
		t.Error("IsValidationError should be true")
	}
}
