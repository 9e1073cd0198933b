package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"billdash/internal/platform/kafka/producer"
)

// DefaultTopic receives audit events when no topic is configured.
const DefaultTopic = "billdash.audit"

// MessageProducer is the slice of the Kafka producer the sink needs.
type MessageProducer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// KafkaSink publishes events as JSON keyed by tenant, so one tenant's trail
// stays ordered within a partition.
type KafkaSink struct {
	producer MessageProducer
	topic    string
}

func NewKafkaSink(p MessageProducer, topic string) *KafkaSink {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaSink{producer: p, topic: topic}
}

func (s *KafkaSink) Publish(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	return s.producer.Produce(ctx, &producer.Message{
		Topic:   s.topic,
		Key:     []byte(event.TenantID),
		Value:   value,
		Headers: map[string]string{"action": string(event.Action)},
	})
}
