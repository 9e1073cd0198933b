// Package requestcontext carries per-request values (request ID, caller
// identity, clock) through context.Context.
package requestcontext

import (
	"context"
	"time"
)

type (
	ctxKeyRequestID struct{}
	ctxKeyIdentity  struct{}
	ctxKeyUserAgent struct{}
	ctxKeyClientIP  struct{}
	ctxKeyDevice    struct{}
	ctxKeyNow       struct{}
)

// Identity is the authenticated caller as asserted by a verified token.
type Identity struct {
	UserID   string
	TenantID string
	Role     string
	Email    string
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID{}, id)
}

// RequestID returns the request ID, or "" outside a request.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRequestID{}).(string); ok {
		return v
	}
	return ""
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity{}, id)
}

// GetIdentity returns the caller identity and whether one was set.
func GetIdentity(ctx context.Context) (Identity, bool) {
	v, ok := ctx.Value(ctxKeyIdentity{}).(Identity)
	return v, ok
}

func UserAgent(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyUserAgent{}).(string); ok {
		return v
	}
	return ""
}

// WithClientMetadata records the caller's address and raw User-Agent.
func WithClientMetadata(ctx context.Context, ip, userAgent string) context.Context {
	ctx = context.WithValue(ctx, ctxKeyClientIP{}, ip)
	return context.WithValue(ctx, ctxKeyUserAgent{}, userAgent)
}

func ClientIP(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyClientIP{}).(string); ok {
		return v
	}
	return ""
}

// WithDevice stores a display name for the caller's client, e.g. "Chrome on Linux".
func WithDevice(ctx context.Context, device string) context.Context {
	return context.WithValue(ctx, ctxKeyDevice{}, device)
}

func Device(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyDevice{}).(string); ok {
		return v
	}
	return ""
}

// WithTime pins the request clock, so every component sees the same instant.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ctxKeyNow{}, t)
}

// Now returns the pinned request time, or time.Now() when none was set.
func Now(ctx context.Context) time.Time {
	if v, ok := ctx.Value(ctxKeyNow{}).(time.Time); ok {
		return v
	}
	return time.Now()
}
