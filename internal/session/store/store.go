// Package store defines the durable key-value contract session state is
// persisted through.
package store

import "context"

// Keys under which the session triple is persisted.
const (
	KeyToken  = "token"
	KeyUser   = "user"
	KeyTenant = "tenant"
)

// Store is a string-keyed durable store.
//
// Error Contract:
//   - Get returns sentinel.ErrNotFound (optionally wrapped) when the key is absent
//   - Delete of an absent key is not an error
//   - Infrastructure failures are returned wrapped with context
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
