package apiclient

import (
	"log/slog"

	"billdash/internal/platform/metrics"
	"billdash/internal/platform/tracer"
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient. Its timeout, if any, applies.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}
