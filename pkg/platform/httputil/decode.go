package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "billdash/pkg/domain-errors"
	"billdash/pkg/requestcontext"
	"billdash/pkg/validation"
)

// DecodeJSON decodes a JSON request body into the target type.
// On failure it writes a 400 response and returns nil, false.
func DecodeJSON[T any](ctx context.Context, w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "failed to decode request body",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		WriteError(w, dErrors.New(dErrors.CodeValidation, "Invalid request body"))
		return nil, false
	}
	return &req, true
}

// Normalizable is implemented by request types that support normalization.
type Normalizable interface {
	Normalize()
}

// PrepareRequest normalizes a request and validates its struct tags.
func PrepareRequest(req any) error {
	if n, ok := req.(Normalizable); ok {
		n.Normalize()
	}
	return validation.Validate(req)
}

// DecodeAndPrepare combines JSON decoding with request preparation.
//
// Usage:
//
//	req, ok := httputil.DecodeAndPrepare[models.LoginRequest](ctx, w, r, h.logger)
//	if !ok {
//	    return
//	}
func DecodeAndPrepare[T any](ctx context.Context, w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	req, ok := DecodeJSON[T](ctx, w, r, logger)
	if !ok {
		return nil, false
	}

	if err := PrepareRequest(req); err != nil {
		logger.WarnContext(ctx, "invalid request",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		var domainErr *dErrors.Error
		if errors.As(err, &domainErr) {
			WriteError(w, err)
		} else {
			WriteError(w, dErrors.New(dErrors.CodeValidation, err.Error()))
		}
		return nil, false
	}

	return req, true
}
