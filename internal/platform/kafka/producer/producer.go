// Package producer publishes records to Kafka through franz-go.
package producer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is one record to publish.
type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// Config holds producer configuration. Brokers is a comma separated list.
type Config struct {
	Brokers         string
	Acks            string
	Retries         int
	DeliveryTimeout time.Duration
}

// DefaultConfig returns the settings the mock backend runs with.
func DefaultConfig(brokers string) Config {
	return Config{
		Brokers:         brokers,
		Acks:            "all",
		Retries:         3,
		DeliveryTimeout: 10 * time.Second,
	}
}

// Producer wraps a franz-go client. Produce blocks until the broker acks.
type Producer struct {
	client *kgo.Client
	logger *slog.Logger
	mu     sync.RWMutex
	closed bool
}

// New creates a producer. It does not contact the brokers; the first
// Produce or Ping does.
func New(cfg Config, logger *slog.Logger) (*Producer, error) {
	brokers := SplitBrokers(cfg.Brokers)
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers not configured")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var acks kgo.Acks
	switch cfg.Acks {
	case "0":
		acks = kgo.NoAck()
	case "1":
		acks = kgo.LeaderAck()
	default:
		acks = kgo.AllISRAcks()
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.RequiredAcks(acks),
		kgo.RecordRetries(cfg.Retries),
		kgo.ProducerLinger(5 * time.Millisecond),
		kgo.AllowAutoTopicCreation(),
	}
	// Idempotent writes need acks=all.
	if cfg.Acks == "0" || cfg.Acks == "1" {
		opts = append(opts, kgo.DisableIdempotentWrite())
	}
	if cfg.DeliveryTimeout > 0 {
		opts = append(opts, kgo.RecordDeliveryTimeout(cfg.DeliveryTimeout))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return &Producer{client: client, logger: logger}, nil
}

// Produce sends msg and waits for the acknowledgement.
func (p *Producer) Produce(ctx context.Context, msg *Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return fmt.Errorf("producer is closed")
	}

	record := &kgo.Record{
		Topic: msg.Topic,
		Key:   msg.Key,
		Value: msg.Value,
	}
	for k, v := range msg.Headers {
		record.Headers = append(record.Headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
	}

	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", msg.Topic, err)
	}
	return nil
}

// Ping checks that at least one broker answers.
func (p *Producer) Ping(ctx context.Context) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return fmt.Errorf("producer is closed")
	}
	return p.client.Ping(ctx)
}

// Close flushes buffered records (bounded by ctx) and releases the client.
func (p *Producer) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	err := p.client.Flush(ctx)
	if err != nil {
		p.logger.Warn("kafka producer closed with unflushed records", "error", err)
	}
	p.client.Close()
	return err
}

// SplitBrokers parses a comma separated broker list, dropping blanks.
func SplitBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
