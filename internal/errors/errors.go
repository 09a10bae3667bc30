// Package errors provides domain-specific error types for cdnx.
//
// This package defines structured errors with error codes, making it easier to
// handle and test different error conditions consistently across the
// application. Per-item failures (one provider, one domain) carry recoverable
// codes; only the aggregate "no range data at all" condition is fatal.
package errors

import "fmt"

// ErrorCode represents a category of error that can occur in the application.
type ErrorCode string

const (
	// ErrCodeConfig indicates a configuration-related error.
	ErrCodeConfig ErrorCode = "CONFIG_ERROR"

	// ErrCodeFetch indicates a single provider fetch/parse failure.
	// Recovered: the provider is excluded from the current refresh cycle.
	ErrCodeFetch ErrorCode = "FETCH_ERROR"

	// ErrCodeCache indicates a corrupt or unreadable cache file.
	// Recovered: treated as a cache miss.
	ErrCodeCache ErrorCode = "CACHE_ERROR"

	// ErrCodeRefresh indicates that every provider failed and no usable
	// cache exists. Fatal: there is nothing to classify against.
	ErrCodeRefresh ErrorCode = "REFRESH_ERROR"

	// ErrCodeDNS indicates a per-domain resolution failure (NXDOMAIN,
	// timeout, no A record). Recovered: the domain is dropped.
	ErrCodeDNS ErrorCode = "DNS_ERROR"

	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Error represents a domain-specific error with an error code and optional cause.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error for errors.Is and errors.As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a new domain error with the specified code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Wrap creates a new domain error wrapping an existing error.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigError creates a new configuration error.
func NewConfigError(message string, cause error) *Error {
	return Wrap(ErrCodeConfig, message, cause)
}

// NewFetchError creates a new provider fetch error.
func NewFetchError(message string, cause error) *Error {
	return Wrap(ErrCodeFetch, message, cause)
}

// NewCacheError creates a new cache read/write error.
func NewCacheError(message string, cause error) *Error {
	return Wrap(ErrCodeCache, message, cause)
}

// NewRefreshError creates a new total-refresh-failure error.
func NewRefreshError(message string, cause error) *Error {
	return Wrap(ErrCodeRefresh, message, cause)
}

// NewDNSError creates a new per-domain resolution error.
func NewDNSError(message string, cause error) *Error {
	return Wrap(ErrCodeDNS, message, cause)
}

// NewInternalError creates a new internal error.
func NewInternalError(message string, cause error) *Error {
	return Wrap(ErrCodeInternal, message, cause)
}
