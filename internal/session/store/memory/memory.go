package memory

import (
	"context"
	"fmt"
	"sync"

	"billdash/internal/sentinel"
)

// Store keeps entries in memory for tests and ephemeral runs.
type Store struct {
	mu      sync.RWMutex
	entries map[string]string
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{entries: make(map[string]string)}
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.entries[key]; ok {
		return v, nil
	}
	return "", fmt.Errorf("key %q: %w", key, sentinel.ErrNotFound)
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = value
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Len reports how many keys are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
