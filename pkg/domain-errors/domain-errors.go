package domainerrors

import "errors"

// Code names a failure category as seen by a caller of the billing API.
// Codes describe what went wrong for the user, not which HTTP status was
// returned; use Classify to derive one from a client error.
type Code string

const (
	CodeNetwork    Code = "network_failure"
	CodeAuth       Code = "auth_failure"
	CodePermission Code = "permission_failure"
	CodeValidation Code = "validation_failure"
	CodeRateLimit  Code = "rate_limit_exceeded"
	CodeServer     Code = "server_failure"

	// CodeInvalidInput is raised locally, before any request leaves the process.
	CodeInvalidInput Code = "invalid_input"

	// CodeNotFound is raised server-side when a referenced record is missing.
	CodeNotFound Code = "not_found"
)

// Error wraps a failure with a stable code.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap creates a new error wrapping an existing one.
// If the wrapped error already carries a code, that code is preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is classified with the given code.
func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return Classify(err) == code
}
