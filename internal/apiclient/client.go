// Package apiclient is the HTTP client for the multi-tenant billing API.
// Each call reads the bearer token from a TokenSource at request time, so a
// login or logout takes effect on the next request without rebuilding the
// client.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"billdash/internal/platform/metrics"
	"billdash/internal/platform/tracer"
)

// DefaultUserAgent identifies the client to the backend.
const DefaultUserAgent = "billdash-cli/1.0"

// HeaderRequestID carries a per-request correlation ID.
const HeaderRequestID = "X-Request-ID"

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenSource yields the bearer token for the next request, or "" for none.
type TokenSource interface {
	Token(ctx context.Context) string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) string

func (f TokenFunc) Token(ctx context.Context) string { return f(ctx) }

// Client talks to the billing API. Safe for concurrent use.
type Client struct {
	baseURL   string
	http      HTTPDoer
	tokens    TokenSource
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    tracer.Tracer
	userAgent string
}

// New creates a client rooted at baseURL (e.g. http://localhost:5000/api).
// Without options it uses http.DefaultClient, sends no token, and discards
// logs, metrics and spans.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      http.DefaultClient,
		logger:    slog.New(slog.DiscardHandler),
		tracer:    tracer.NewNoop(),
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the root every path is appended to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// envelope is the backend's standard response wrapper.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// do sends one request and decodes the (unwrapped) response into out.
// endpoint names the call in logs, metrics and spans.
func (c *Client) do(ctx context.Context, endpoint, method, path string, in, out any) (err error) {
	requestID := uuid.NewString()
	token := c.token(ctx)

	ctx, span := c.tracer.Start(ctx, tracer.SpanPrefix+endpoint,
		tracer.String(tracer.AttrHTTPMethod, method),
		tracer.String(tracer.AttrHTTPPath, path),
		tracer.String(tracer.AttrRequestID, requestID),
		tracer.Bool(tracer.AttrAuthenticated, token != ""),
	)
	defer func() { span.End(err) }()

	start := time.Now()
	status := 0
	defer func() {
		elapsed := time.Since(start)
		c.metrics.ObserveRequest(endpoint, status, elapsed)
		attrs := []any{
			"request_id", requestID,
			"endpoint", endpoint,
			"method", method,
			"path", path,
			"status", status,
			"latency_ms", elapsed.Milliseconds(),
		}
		if err != nil {
			c.logger.WarnContext(ctx, "api request failed", append(attrs, "error", err)...)
			return
		}
		c.logger.DebugContext(ctx, "api request completed", attrs...)
	}()

	var body io.Reader
	if in != nil {
		payload, mErr := json.Marshal(in)
		if mErr != nil {
			return &Error{Method: method, Path: path, Err: fmt.Errorf("encode request: %w", mErr)}
		}
		body = bytes.NewReader(payload)
	}

	req, rErr := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if rErr != nil {
		return &Error{Method: method, Path: path, Err: fmt.Errorf("build request: %w", rErr)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(HeaderRequestID, requestID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, dErr := c.http.Do(req)
	if dErr != nil {
		return &Error{Method: method, Path: path, Err: dErr}
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	raw, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return &Error{StatusCode: status, Method: method, Path: path, Err: fmt.Errorf("read response: %w", readErr)}
	}
	span.AddEvent(tracer.EventResponseReceived, tracer.Int64(tracer.AttrHTTPStatus, int64(status)))
	span.SetAttributes(tracer.Int64(tracer.AttrHTTPStatus, int64(status)))

	if status < 200 || status >= 300 {
		return newStatusError(method, path, status, raw)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if uErr := json.Unmarshal(unwrap(raw), out); uErr != nil {
		return &Error{StatusCode: status, Method: method, Path: path, Body: truncate(raw), Err: fmt.Errorf("decode response: %w", uErr)}
	}
	return nil
}

func (c *Client) token(ctx context.Context) string {
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token(ctx)
}

// unwrap returns the envelope's data member when present, else raw.
func unwrap(raw []byte) []byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return raw
	}
	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil || len(env.Data) == 0 {
		return raw
	}
	return env.Data
}
