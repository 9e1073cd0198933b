package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"billdash/pkg/platform/circuit"
)

// Publisher records audit events. The store write is synchronous; the
// optional sink is fed from a buffered queue by a background goroutine and
// guarded by a circuit breaker.
type Publisher struct {
	store   Store
	sink    Sink
	breaker *circuit.Breaker
	events  chan Event
	wg      sync.WaitGroup
	logger  *slog.Logger
	now     func() time.Time
	once    sync.Once
	// mu keeps Emit from sending on a queue Close has shut.
	mu     sync.RWMutex
	closed bool
}

// PublisherOption configures the Publisher.
type PublisherOption func(*Publisher)

// WithSink forwards every event to sink through a queue of bufferSize.
func WithSink(sink Sink, bufferSize int) PublisherOption {
	return func(p *Publisher) {
		if sink == nil {
			return
		}
		if bufferSize <= 0 {
			bufferSize = 256
		}
		p.sink = sink
		p.events = make(chan Event, bufferSize)
	}
}

// WithBreaker overrides the breaker guarding the sink.
func WithBreaker(b *circuit.Breaker) PublisherOption {
	return func(p *Publisher) {
		p.breaker = b
	}
}

// WithPublisherLogger sets a logger for sink error reporting.
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithClock stamps events with now instead of time.Now.
func WithClock(now func() time.Time) PublisherOption {
	return func(p *Publisher) {
		p.now = now
	}
}

func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.sink != nil {
		if p.breaker == nil {
			p.breaker = circuit.New("audit-sink")
		}
		p.wg.Add(1)
		go p.forward()
	}
	return p
}

// Emit stores the event and queues it for the sink. A full queue drops the
// sink copy, never the stored one.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if err := p.store.Append(ctx, event); err != nil {
		return err
	}
	if p.events == nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil
	}
	select {
	case p.events <- event:
	default:
		p.logger.Warn("audit sink queue full, event not forwarded",
			"action", event.Action,
			"tenant_id", event.TenantID,
		)
	}
	return nil
}

// List returns the tenant's most recent events, newest first.
func (p *Publisher) List(ctx context.Context, tenantID string, limit int) ([]Event, error) {
	return p.store.ListByTenant(ctx, tenantID, limit)
}

// Close stops accepting sink work and waits for the queue to drain.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if p.events == nil {
			return
		}
		p.mu.Lock()
		p.closed = true
		close(p.events)
		p.mu.Unlock()
		p.wg.Wait()
	})
}

func (p *Publisher) forward() {
	defer p.wg.Done()
	for event := range p.events {
		if !p.breaker.Allow() {
			p.logger.Debug("audit sink circuit open, event not forwarded", "action", event.Action)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := p.sink.Publish(ctx, event)
		cancel()

		changed := p.breaker.Record(err)
		if err != nil {
			p.logger.Error("failed to forward audit event",
				"error", err,
				"action", event.Action,
				"tenant_id", event.TenantID,
			)
		}
		if changed {
			p.logger.Warn("audit sink circuit changed", "breaker", p.breaker.Name(), "state", p.breaker.State().String())
		}
	}
}
