// Package sync serializes work per key without a process-wide lock.
package sync

import (
	"hash/fnv"
	"sync"
)

// DefaultShards is used when NewShardedMutex is given a non-positive count.
const DefaultShards = 32

// ShardedMutex maps keys onto a fixed set of mutexes. Two callers with the
// same key always share a mutex; different keys usually do not.
type ShardedMutex struct {
	shards []sync.Mutex
}

func NewShardedMutex(shards int) *ShardedMutex {
	if shards <= 0 {
		shards = DefaultShards
	}
	return &ShardedMutex{shards: make([]sync.Mutex, shards)}
}

func (m *ShardedMutex) Lock(key string) {
	m.shards[m.shardFor(key)].Lock()
}

func (m *ShardedMutex) Unlock(key string) {
	m.shards[m.shardFor(key)].Unlock()
}

// WithLock runs fn while holding the mutex for key.
func (m *ShardedMutex) WithLock(key string, fn func() error) error {
	m.Lock(key)
	defer m.Unlock(key)
	return fn()
}

func (m *ShardedMutex) shardFor(key string) int {
	if key == "" {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(m.shards)))
}
