package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType categorizes application errors by how they are recovered from.
type ErrorType string

const (
	// ConfigurationError represents a missing or invalid client configuration,
	// fatal to the current attempt but user-correctable.
	ConfigurationError ErrorType = "configuration_error"
	// AuthorizationError represents a denied or malformed authorization
	// redirect, recoverable by retrying the flow.
	AuthorizationError ErrorType = "authorization_error"
	// ExchangeError represents a failure during the code-for-token exchange.
	ExchangeError ErrorType = "exchange_error"
	// APIError represents any non-success remote API response or a transport
	// failure before a status was obtained.
	APIError ErrorType = "api_error"
	// PersistenceError represents a storage failure; callers treat the value
	// as absent rather than failing.
	PersistenceError ErrorType = "persistence_error"
)

// AppError is a structured application error carrying its category and, for
// remote failures, the HTTP status that produced it.
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"status_code,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError.
func New(errorType ErrorType, message string) *AppError {
	return &AppError{
		Type:    errorType,
		Message: message,
	}
}

// Wrap wraps an existing error with a category and message.
func Wrap(err error, errorType ErrorType, message string) *AppError {
	return &AppError{
		Type:    errorType,
		Message: message,
		Cause:   err,
	}
}

// WithDetails adds details to an AppError.
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithStatusCode records the HTTP status code that produced the error.
func (e *AppError) WithStatusCode(code int) *AppError {
	e.StatusCode = code
	return e
}

// IsType reports whether err (or anything it wraps) is an AppError of the
// given type.
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not an
// AppError or no status was recorded. An expired-token response can be
// detected by comparing the result against http.StatusUnauthorized.
func StatusCode(err error) int {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return 0
}

// NewConfigurationError creates a configuration error.
func NewConfigurationError(message string) *AppError {
	return New(ConfigurationError, message)
}

// NewAuthorizationError creates an authorization error.
func NewAuthorizationError(message string) *AppError {
	return New(AuthorizationError, message)
}

// NewExchangeError creates a token-exchange error.
func NewExchangeError(message string) *AppError {
	return New(ExchangeError, message)
}

// NewAPIError creates a remote-API error with the originating status code.
func NewAPIError(message string, statusCode int) *AppError {
	return New(APIError, message).WithStatusCode(statusCode)
}

// NewPersistenceError creates a persistence error.
func NewPersistenceError(message string) *AppError {
	return New(PersistenceError, message)
}
