package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType classifies failures surfaced by the explorer
type ErrorType string

const (
	ErrorTypeAuth          ErrorType = "auth"
	ErrorTypeFetch         ErrorType = "fetch"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeForbidden     ErrorType = "forbidden"
	ErrorTypeRateLimit     ErrorType = "rate_limit"
	ErrorTypeServerError   ErrorType = "server_error"
	ErrorTypeNetwork       ErrorType = "network"
	ErrorTypeParsing       ErrorType = "parsing"
	ErrorTypeSerialization ErrorType = "serialization"
	ErrorTypeArchiveItem   ErrorType = "archive_item"
	ErrorTypeUnknown       ErrorType = "unknown"
)

// Error is a typed error carrying the HTTP status when one is known
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage returns the message without the type prefix, for display
func (e *Error) UserMessage() string {
	return e.Message
}

// NewAuthError reports bad or missing credentials or a rejected token request
func NewAuthError(msg string, err error) *Error {
	return &Error{Type: ErrorTypeAuth, Message: msg, Err: err}
}

// NewFetchError reports a failed listing, search or comments request.
// The type is refined from the status code.
func NewFetchError(code int, msg string) *Error {
	return &Error{Type: typeForStatus(code), Message: msg, Code: code}
}

// NewSerializationError reports an export document that could not be encoded
func NewSerializationError(err error) *Error {
	return &Error{
		Type:    ErrorTypeSerialization,
		Message: fmt.Sprintf("failed to serialize export: %v", err),
		Err:     err,
	}
}

// NewNetworkError wraps a transport failure
func NewNetworkError(err error) *Error {
	return &Error{
		Type:    ErrorTypeNetwork,
		Message: fmt.Sprintf("network error: %v", err),
		Err:     err,
	}
}

func typeForStatus(code int) ErrorType {
	switch {
	case code == http.StatusNotFound:
		return ErrorTypeNotFound
	case code == http.StatusForbidden:
		return ErrorTypeForbidden
	case code == http.StatusUnauthorized:
		return ErrorTypeAuth
	case code == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case code >= 500:
		return ErrorTypeServerError
	default:
		return ErrorTypeFetch
	}
}

// Is reports whether err is a typed Error of the given type
func Is(err error, t ErrorType) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type == t
	}
	return false
}

// IsAuth reports whether err came from credential handling
func IsAuth(err error) bool {
	return Is(err, ErrorTypeAuth)
}

// IsFetch reports whether err is any non-auth API failure
func IsFetch(err error) bool {
	var e *Error
	if !stderrors.As(err, &e) {
		return false
	}
	switch e.Type {
	case ErrorTypeFetch, ErrorTypeNotFound, ErrorTypeForbidden, ErrorTypeRateLimit,
		ErrorTypeServerError, ErrorTypeNetwork, ErrorTypeParsing:
		return true
	}
	return false
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case http.StatusTooManyRequests:
		return true
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return false
	default:
		return statusCode >= 500
	}
}
