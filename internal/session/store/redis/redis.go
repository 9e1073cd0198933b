// Package redis persists session entries in Redis under a namespaced prefix.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"billdash/internal/sentinel"
)

// KeyPrefix namespaces session keys so the store can share a database.
const KeyPrefix = "billdash:session:"

// Store implements the session key-value contract on a Redis client.
type Store struct {
	client redis.Cmdable
	prefix string
}

// New returns a store on client using KeyPrefix.
func New(client redis.Cmdable) *Store {
	return &Store{client: client, prefix: KeyPrefix}
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("key %q: %w", key, sentinel.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("redis store: get %q: %w", key, err)
	}
	return v, nil
}

// Set stores the value without expiry; sessions end only on logout.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis store: set %q: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis store: delete %q: %w", key, err)
	}
	return nil
}
