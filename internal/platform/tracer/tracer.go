// Package tracer provides a lightweight tracing abstraction for outbound
// billing API calls.
//
// The interface does not depend on OpenTelemetry directly, so the client can
// emit spans while tests run with the no-op implementation.
//
// Implementations:
//   - NoopTracer: for tests (zero overhead)
//   - OTelTracer: OpenTelemetry adapter for production
package tracer

import (
	"context"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span, recording any error that occurred.
	// End must be called exactly once, typically via defer.
	End(err error)

	// SetAttributes adds key-value pairs to the span.
	SetAttributes(attrs ...Attribute)

	// AddEvent records a timestamped event within the span.
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	// Start creates a new span with the given name and attributes.
	// The returned context carries the span; the span must be ended.
	//
	// Example:
	//   ctx, span := tr.Start(ctx, tracer.SpanPrefix+"get_usage",
	//       tracer.String(tracer.AttrHTTPMethod, "GET"),
	//   )
	//   defer span.End(err)
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

// String creates a string attribute.
func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Bool creates a boolean attribute.
func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int64 creates an int64 attribute.
func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Float64 creates a float64 attribute.
func Float64(key string, value float64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// SpanPrefix prefixes every client span name, e.g. "apiclient.get_usage".
const SpanPrefix = "apiclient."

// Attribute keys used by the API client.
const (
	AttrHTTPMethod    = "http.method"
	AttrHTTPPath      = "http.path"
	AttrHTTPStatus    = "http.status_code"
	AttrRequestID     = "request_id"
	AttrAuthenticated = "authenticated"
	AttrLatency       = "latency_ms"
)

// Event names used by the API client.
const (
	EventResponseReceived = "response.received"
)
