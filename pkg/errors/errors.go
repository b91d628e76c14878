package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
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

// rateLimitMarker is what the portal error message carries for a 429.
const rateLimitMarker = "HTTP 429"

// Error represents a portal API error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// FromStatus builds the error for a non-2xx portal response. The message
// always starts with "HTTP <code>" so callers further up can classify it
// from the text alone.
func FromStatus(code int, status string) *Error {
	text := strings.TrimSpace(strings.TrimPrefix(status, fmt.Sprintf("%d", code)))
	if text == "" {
		text = http.StatusText(code)
	}
	return &Error{
		Type:    TypeForStatus(code),
		Message: fmt.Sprintf("HTTP %d: %s", code, text),
		Code:    code,
	}
}

// TypeForStatus maps an HTTP status code to an ErrorType
func TypeForStatus(code int) ErrorType {
	switch {
	case code == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrorTypeAuth
	case code == http.StatusNotFound:
		return ErrorTypeNotFound
	case code >= 500:
		return ErrorTypeServerError
	default:
		return ErrorTypeUnknown
	}
}

// IsRateLimit reports whether err describes a rate-limit response. The
// substring check matches wrapped errors whose type information was lost.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return true
	}
	return strings.Contains(err.Error(), rateLimitMarker)
}
