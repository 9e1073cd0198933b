package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "billdash/pkg/domain-errors"
)

// Envelope is the response shape of the billing API. Successful responses
// carry Data; failures carry Message and a stable Error code.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Errors after WriteHeader cannot change the status code, so we ignore encoding errors.
	_ = json.NewEncoder(w).Encode(response)
}

// WriteData writes a successful enveloped response.
func WriteData(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, Envelope{Success: true, Data: data})
}

// WriteMessage writes a failure envelope with an explicit status.
func WriteMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Envelope{Success: false, Message: message, Error: http.StatusText(status)})
}

// WriteError centralizes domain error translation to HTTP responses.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		WriteJSON(w, DomainCodeToHTTPStatus(domainErr.Code), Envelope{
			Success: false,
			Message: domainErr.Error(),
			Error:   string(domainErr.Code),
		})
		return
	}

	// Unexpected errors never leak their text.
	WriteJSON(w, http.StatusInternalServerError, Envelope{
		Success: false,
		Message: "Internal server error",
		Error:   string(dErrors.CodeServer),
	})
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeValidation, dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeAuth:
		return http.StatusUnauthorized
	case dErrors.CodePermission:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeRateLimit:
		return http.StatusTooManyRequests
	case dErrors.CodeNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
