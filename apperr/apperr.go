// Package apperr provides the unified error type for the auth gate.
// It implements structured errors with machine-readable codes and HTTP
// status mapping so every verification failure resolves deterministically
// to a documented response.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the unified application error type.
type Error struct {
	// Code is a machine-readable error code.
	Code Code `json:"code"`
	// Message is a human-readable error message. Messages for credential
	// failures are deliberately generic and never distinguish a bad
	// username from a bad password.
	Message string `json:"message"`
	// HTTPStatus is the status code for this error when it terminates a
	// request. Zero for startup-fatal errors.
	HTTPStatus int `json:"-"`
	// Cause is the underlying error, if any.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *Error) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause and returns the receiver.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// CodeOf extracts the Code from err, or CodeInternal if err is not an *Error.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// StatusOf extracts the HTTP status from err, defaulting to 500.
func StatusOf(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.HTTPStatus != 0 {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// --- Constructors ---

// Config creates a startup-fatal configuration error.
func Config(format string, args ...any) *Error {
	return &Error{
		Code:    CodeConfigInvalid,
		Message: fmt.Sprintf(format, args...),
	}
}

// StoreIO creates a startup-fatal credential source error.
func StoreIO(source string, cause error) *Error {
	return &Error{
		Code:    CodeStoreIO,
		Message: fmt.Sprintf("credential source %s unreadable", source),
		Cause:   cause,
	}
}

// InvalidCredentials creates the generic credential rejection error.
// The message is identical for unknown users, disabled users, and wrong
// passwords.
func InvalidCredentials() *Error {
	return &Error{
		Code:       CodeInvalidCredentials,
		Message:    "invalid username or password",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// TokenExpired creates an error for a structurally valid but expired
// session token.
func TokenExpired() *Error {
	return &Error{
		Code:       CodeTokenExpired,
		Message:    "session expired",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// TokenMalformed creates an error for a token that failed structural or
// signature checks.
func TokenMalformed(cause error) *Error {
	return &Error{
		Code:       CodeTokenMalformed,
		Message:    "invalid session token",
		HTTPStatus: http.StatusUnauthorized,
		Cause:      cause,
	}
}

// RateLimited creates the throttling error.
func RateLimited() *Error {
	return &Error{
		Code:       CodeRateLimited,
		Message:    "too many failed attempts; try again later",
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// Unauthorized creates an error for requests with no usable credentials.
func Unauthorized() *Error {
	return &Error{
		Code:       CodeUnauthorized,
		Message:    "authentication required",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Forbidden creates an error for authenticated principals that the matched
// rule does not admit.
func Forbidden(principal string) *Error {
	return &Error{
		Code:       CodeForbidden,
		Message:    fmt.Sprintf("principal %q is not permitted here", principal),
		HTTPStatus: http.StatusForbidden,
	}
}

// Internal wraps an unexpected error.
func Internal(cause error) *Error {
	return &Error{
		Code:       CodeInternal,
		Message:    "internal error",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}
