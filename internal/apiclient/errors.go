package apiclient

import (
	"encoding/json"
	"fmt"
	"strings"
)

// maxErrorBody caps how much of a failed response is kept on the error.
const maxErrorBody = 4 << 10

// Error is returned for every failed call. The client does not interpret
// failures; callers classify with domainerrors.Classify, which reads the
// status through HTTPStatus.
type Error struct {
	// StatusCode is the response status, or 0 when no response was received.
	StatusCode int
	// Message is the server-supplied explanation, if the body had one.
	Message string
	// Body is the raw (truncated) response body.
	Body   string
	Method string
	Path   string
	// Err is the underlying transport or decode error, if any.
	Err error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode == 0:
		return fmt.Sprintf("%s %s: request failed: %v", e.Method, e.Path, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s %s: status %d: %v", e.Method, e.Path, e.StatusCode, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s %s: request failed with status code %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("%s %s: request failed with status code %d", e.Method, e.Path, e.StatusCode)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the response status, 0 for network failures.
func (e *Error) HTTPStatus() int {
	return e.StatusCode
}

// ServerMessage returns the message the backend put in the error body.
func (e *Error) ServerMessage() string {
	return e.Message
}

// Summary is the short, endpoint-free description shown to users:
// "Network Error" when nothing came back, otherwise the status line.
func (e *Error) Summary() string {
	if e.StatusCode == 0 {
		return "Network Error"
	}
	return fmt.Sprintf("Request failed with status code %d", e.StatusCode)
}

// IsStatus reports whether the call got a response with the given status.
func (e *Error) IsStatus(status int) bool {
	return e.StatusCode == status
}

// errorBody covers the error shapes the backend and its proxies emit.
type errorBody struct {
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
	Error            any    `json:"error"`
}

func newStatusError(method, path string, status int, body []byte) *Error {
	return &Error{
		StatusCode: status,
		Method:     method,
		Path:       path,
		Body:       truncate(body),
		Message:    extractMessage(body),
	}
}

// extractMessage prefers message, then error_description, then error.
func extractMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	if eb.Message != "" {
		return eb.Message
	}
	if eb.ErrorDescription != "" {
		return eb.ErrorDescription
	}
	if s, ok := eb.Error.(string); ok {
		return s
	}
	return ""
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody]
	}
	return s
}
