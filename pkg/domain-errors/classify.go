package domainerrors

import (
	"errors"
	"net/http"
)

// StatusCarrier is implemented by transport errors that know the HTTP status
// of the failed response. A status of 0 means no response was received.
type StatusCarrier interface {
	HTTPStatus() int
}

// MessageCarrier is implemented by transport errors that carry a
// server-supplied, human-readable message.
type MessageCarrier interface {
	ServerMessage() string
}

// Summarizer is implemented by errors that have a short user-facing form
// distinct from their diagnostic Error text.
type Summarizer interface {
	Summary() string
}

// Classify maps an error to its failure category. Errors that already carry a
// Code keep it; errors exposing an HTTP status are mapped from the status;
// anything else is a server failure.
func Classify(err error) Code {
	if err == nil {
		return ""
	}

	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}

	var sc StatusCarrier
	if errors.As(err, &sc) {
		return FromHTTPStatus(sc.HTTPStatus())
	}

	return CodeServer
}

// FromHTTPStatus translates a response status into a failure category.
func FromHTTPStatus(status int) Code {
	switch {
	case status == 0:
		return CodeNetwork
	case status == http.StatusBadRequest:
		return CodeValidation
	case status == http.StatusUnauthorized:
		return CodeAuth
	case status == http.StatusForbidden:
		return CodePermission
	case status == http.StatusTooManyRequests:
		return CodeRateLimit
	default:
		return CodeServer
	}
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var sc StatusCarrier
	if errors.As(err, &sc) {
		return sc.HTTPStatus()
	}
	return 0
}

// MessageOf returns the server-supplied message carried by err, or "".
func MessageOf(err error) string {
	var mc MessageCarrier
	if errors.As(err, &mc) {
		return mc.ServerMessage()
	}
	return ""
}

// SummaryOf returns the user-facing summary of err, falling back to
// err.Error() when nothing in the chain provides one.
func SummaryOf(err error) string {
	var sm Summarizer
	if errors.As(err, &sm) {
		return sm.Summary()
	}
	return err.Error()
}
