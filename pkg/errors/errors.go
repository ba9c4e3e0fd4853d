package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents a remote API error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// New creates a typed error
func New(errorType ErrorType, code int, message string) *Error {
	return &Error{Type: errorType, Message: message, Code: code}
}

// FromStatus classifies an HTTP status code. It returns nil for 2xx/3xx.
func FromStatus(statusCode int, message string) *Error {
	if statusCode < 400 {
		return nil
	}
	if message == "" {
		message = http.StatusText(statusCode)
	}

	var errorType ErrorType
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		errorType = ErrorTypeAuth
	case statusCode == http.StatusNotFound:
		errorType = ErrorTypeNotFound
	case statusCode == http.StatusTooManyRequests:
		errorType = ErrorTypeRateLimit
	case statusCode >= 500:
		errorType = ErrorTypeServerError
	default:
		errorType = ErrorTypeUnknown
	}

	return &Error{Type: errorType, Message: message, Code: statusCode}
}

// TypeOf returns the ErrorType of err, or ErrorTypeUnknown if err carries none
func TypeOf(err error) ErrorType {
	var apiErr *Error
	if stderrors.As(err, &apiErr) {
		return apiErr.Type
	}
	return ErrorTypeUnknown
}

// IsNotFound reports whether err is a not-found API error.
// Not-found is terminal: the item is already gone, so there is nothing to retry.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *Error
	return stderrors.As(err, &apiErr) && apiErr.Type == ErrorTypeNotFound
}
