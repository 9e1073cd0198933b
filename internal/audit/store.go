package audit

import "context"

// Store persists events. Append must be safe for concurrent use.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]Event, error)
}

// Sink forwards events to an external system. Failures never reach the
// caller of Emit; they are logged and counted by the breaker.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}
