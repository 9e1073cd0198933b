// Package ratelimit throttles the mock backend's sign-in endpoints per client
// address with an in-memory sliding window.
package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Result is the outcome of one Allow call.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int // seconds, zero when allowed
}

// slidingWindow keeps the timestamps of accepted requests inside the window.
type slidingWindow struct {
	timestamps []time.Time
	window     time.Duration
}

func (sw *slidingWindow) tryConsume(limit int, now time.Time) Result {
	sw.cleanupExpired(now)

	if len(sw.timestamps) >= limit {
		resetAt := now.Add(sw.window)
		if len(sw.timestamps) > 0 {
			resetAt = sw.timestamps[0].Add(sw.window)
		}
		return Result{
			Limit:      limit,
			ResetAt:    resetAt,
			RetryAfter: max(int(resetAt.Sub(now).Seconds()), 1),
		}
	}

	sw.timestamps = append(sw.timestamps, now)
	return Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(sw.timestamps),
		ResetAt:   sw.timestamps[0].Add(sw.window),
	}
}

func (sw *slidingWindow) cleanupExpired(now time.Time) {
	cutoff := now.Add(-sw.window)
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}

// InMemoryLimiter tracks one sliding window per key.
type InMemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*slidingWindow
	now     func() time.Time
}

type Option func(*InMemoryLimiter)

// WithClock replaces time.Now. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(l *InMemoryLimiter) {
		if now != nil {
			l.now = now
		}
	}
}

func NewInMemoryLimiter(opts ...Option) *InMemoryLimiter {
	l := &InMemoryLimiter{
		windows: make(map[string]*slidingWindow),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow records a request for key if fewer than limit were accepted within
// window.
func (l *InMemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (*Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	sw, ok := l.windows[key]
	if !ok {
		sw = &slidingWindow{window: window}
		l.windows[key] = sw
	}
	res := sw.tryConsume(limit, l.now())
	return &res, nil
}

// Prune drops keys with no request inside their window and reports how many
// were removed.
func (l *InMemoryLimiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, sw := range l.windows {
		sw.cleanupExpired(now)
		if len(sw.timestamps) == 0 {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}

// RunCleanup prunes idle keys every interval until ctx is done.
func (l *InMemoryLimiter) RunCleanup(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := l.Prune(); removed > 0 {
				logger.Debug("rate limit windows pruned", "removed", removed)
			}
		}
	}
}
