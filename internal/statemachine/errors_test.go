package statemachine

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
			name:     "error without details",
			err:      New("Test", "test message"),
			expected: "[Test] test message",
		},
		{
			name:     "error with details",
			err:      New("Test", "test message").WithDetails("extra info"),
			expected: "[Test] test message: extra info",
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

func TestError_Is(t *testing.T) {
	err1 := New("Code1", "message 1")
	err2 := New("Code1", "message 2")
	err3 := New("Code2", "message 1")

	if !errors.Is(err1, err2) {
		t.Error("errors.Is should return true for same error code")
	}
	if errors.Is(err1, err3) {
		t.Error("errors.Is should return false for different error code")
	}
	if errors.Is(err1, fmt.Errorf("some error")) {
		t.Error("errors.Is should return false for non-Error")
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("underlying cause")
	err := New("Code", "wrapper").WithCause(cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if errors.Unwrap(err) != cause {
		t.Error("Unwrap should return the cause")
	}
}

func TestCode(t *testing.T) {
	err := New("ServletExists", "servlet already exists")
	if got := Code(err); got != "ServletExists" {
		t.Errorf("Code() = %q, want %q", got, "ServletExists")
	}
	if got := Code(fmt.Errorf("plain")); got != "" {
		t.Errorf("Code() on non-Error = %q, want empty", got)
	}
}
