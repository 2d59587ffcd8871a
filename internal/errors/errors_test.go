package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ConfigurationError, "test message")

	if err.Type != ConfigurationError {
		t.Errorf("Expected type %s, got %s", ConfigurationError, err.Type)
	}

	if err.Message != "test message" {
		t.Errorf("Expected message 'test message', got %s", err.Message)
	}

	expected := "configuration_error: test message"
	if err.Error() != expected {
		t.Errorf("Expected error string '%s', got '%s'", expected, err.Error())
	}
}

func TestWrap(t *testing.T) {
	originalErr := fmt.Errorf("original error")
	wrappedErr := Wrap(originalErr, ExchangeError, "exchange failed")

	if wrappedErr.Type != ExchangeError {
		t.Errorf("Expected type %s, got %s", ExchangeError, wrappedErr.Type)
	}

	if wrappedErr.Unwrap() != originalErr {
		t.Error("Wrapped error should unwrap to original error")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(AuthorizationError, "redirect rejected").WithDetails("error=access_denied")

	expected := "authorization_error: redirect rejected (error=access_denied)"
	if err.Error() != expected {
		t.Errorf("Expected error string '%s', got '%s'", expected, err.Error())
	}
}

func TestIsType(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		errType  ErrorType
		expected bool
	}{
		{
			name:     "matching type",
			err:      NewAPIError("request failed", http.StatusBadGateway),
			errType:  APIError,
			expected: true,
		},
		{
			name:     "non-matching type",
			err:      NewAPIError("request failed", http.StatusBadGateway),
			errType:  ExchangeError,
			expected: false,
		},
		{
			name:     "wrapped AppError",
			err:      fmt.Errorf("outer: %w", NewPersistenceError("write failed")),
			errType:  PersistenceError,
			expected: true,
		},
		{
			name:     "plain error",
			err:      fmt.Errorf("plain"),
			errType:  APIError,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			errType:  APIError,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsType(tt.err, tt.errType); got != tt.expected {
				t.Errorf("IsType() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestStatusCode(t *testing.T) {
	err := NewAPIError("token expired", http.StatusUnauthorized)

	if got := StatusCode(err); got != http.StatusUnauthorized {
		t.Errorf("StatusCode() = %d, expected %d", got, http.StatusUnauthorized)
	}

	wrapped := fmt.Errorf("refresh: %w", err)
	if got := StatusCode(wrapped); got != http.StatusUnauthorized {
		t.Errorf("StatusCode() through wrapping = %d, expected %d", got, http.StatusUnauthorized)
	}

	if got := StatusCode(fmt.Errorf("plain")); got != 0 {
		t.Errorf("StatusCode() for plain error = %d, expected 0", got)
	}
}
