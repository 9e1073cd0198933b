package audit

import (
	"context"
	"sync"
)

// DefaultRetention caps events kept per tenant in memory.
const DefaultRetention = 1000

type InMemoryStore struct {
	mu        sync.RWMutex
	events    map[string][]Event
	retention int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[string][]Event), retention: DefaultRetention}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := append(s.events[event.TenantID], event)
	if len(events) > s.retention {
		events = events[len(events)-s.retention:]
	}
	s.events[event.TenantID] = events
	return nil
}

// ListByTenant returns up to limit events, newest first. limit <= 0 means all.
func (s *InMemoryStore) ListByTenant(_ context.Context, tenantID string, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := s.events[tenantID]
	if limit <= 0 || limit > len(events) {
		limit = len(events)
	}
	out := make([]Event, 0, limit)
	for i := len(events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, events[i])
	}
	return out, nil
}
