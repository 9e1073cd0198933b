package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

// Options tunes the connection. Zero values keep go-redis defaults.
type Options struct {
	PoolSize    int
	DialTimeout time.Duration
}

// Client wraps the go-redis client with health checking capabilities.
type Client struct {
	*redis.Client
	lastStats *redis.PoolStats
	stats     *poolMetrics
}

type poolMetrics struct {
	hits       prometheus.Counter
	misses     prometheus.Counter
	timeouts   prometheus.Counter
	totalConns prometheus.Gauge
	idleConns  prometheus.Gauge
}

// New creates a new Redis client from a redis:// URL and checks it responds.
func New(ctx context.Context, url string, opts Options) (*Client, error) {
	if url == "" {
		return nil, fmt.Errorf("redis URL is empty")
	}

	parsed, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if opts.PoolSize > 0 {
		parsed.PoolSize = opts.PoolSize
	}
	if opts.DialTimeout > 0 {
		parsed.DialTimeout = opts.DialTimeout
	}

	client := redis.NewClient(parsed)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck // best-effort cleanup on init failure
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{Client: client}, nil
}

// Health checks if the Redis connection is healthy.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.Client.Close()
}

// RegisterPoolMetrics registers pool statistics collectors on reg.
func (c *Client) RegisterPoolMetrics(reg prometheus.Registerer) {
	factory := promauto.With(reg)
	c.stats = &poolMetrics{
		hits: factory.NewCounter(prometheus.CounterOpts{
			Name: "billdash_redis_pool_hits_total",
			Help: "Number of times a connection was found in the pool",
		}),
		misses: factory.NewCounter(prometheus.CounterOpts{
			Name: "billdash_redis_pool_misses_total",
			Help: "Number of times a connection was not found in the pool",
		}),
		timeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "billdash_redis_pool_timeouts_total",
			Help: "Number of times a connection was not obtained due to timeout",
		}),
		totalConns: factory.NewGauge(prometheus.GaugeOpts{
			Name: "billdash_redis_pool_total_conns",
			Help: "Number of total connections in the pool",
		}),
		idleConns: factory.NewGauge(prometheus.GaugeOpts{
			Name: "billdash_redis_pool_idle_conns",
			Help: "Number of idle connections in the pool",
		}),
	}
}

// RecordPoolStats updates the pool metrics with the delta since the last call.
// The CLI calls it once before exiting; it is a no-op until metrics are registered.
func (c *Client) RecordPoolStats() {
	if c.stats == nil {
		return
	}
	stats := c.PoolStats()

	c.stats.totalConns.Set(float64(stats.TotalConns))
	c.stats.idleConns.Set(float64(stats.IdleConns))

	var prev redis.PoolStats
	if c.lastStats != nil {
		prev = *c.lastStats
	}
	if stats.Hits > prev.Hits {
		c.stats.hits.Add(float64(stats.Hits - prev.Hits))
	}
	if stats.Misses > prev.Misses {
		c.stats.misses.Add(float64(stats.Misses - prev.Misses))
	}
	if stats.Timeouts > prev.Timeouts {
		c.stats.timeouts.Add(float64(stats.Timeouts - prev.Timeouts))
	}

	c.lastStats = stats
}
