//go:build integration

package containers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

const kafkaImage = "confluentinc/confluent-local:7.5.0"

// ErrNoMatchingRecord is returned by WaitForRecord when nothing matched in time.
var ErrNoMatchingRecord = errors.New("no matching record")

// KafkaContainer is a single-node KRaft broker.
type KafkaContainer struct {
	Container *kafka.KafkaContainer
	Brokers   string
}

// NewKafkaContainer starts a broker and terminates it when t finishes.
// Tests are skipped when no container runtime is available.
func NewKafkaContainer(t *testing.T) *KafkaContainer {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := kafka.Run(ctx, kafkaImage, kafka.WithClusterID("billdash-audit"))
	if err != nil {
		t.Fatalf("start kafka: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate kafka: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	if err != nil || len(brokers) == 0 {
		t.Fatalf("kafka brokers: %v", err)
	}
	return &KafkaContainer{Container: container, Brokers: brokers[0]}
}

func (k *KafkaContainer) client(opts ...kgo.Opt) (*kgo.Client, error) {
	return kgo.NewClient(append([]kgo.Opt{kgo.SeedBrokers(k.Brokers)}, opts...)...)
}

// CreateTopic creates topic and reports broker-side failures per topic.
func (k *KafkaContainer) CreateTopic(ctx context.Context, topic string, partitions int32, replicationFactor int16) error {
	cl, err := k.client()
	if err != nil {
		return err
	}
	defer cl.Close()

	resp, err := kadm.NewClient(cl).CreateTopic(ctx, partitions, replicationFactor, nil, topic)
	if err != nil {
		return err
	}
	if resp.Err != nil {
		return fmt.Errorf("create topic %s: %w", topic, resp.Err)
	}
	return nil
}

// NewConsumer reads topics from the earliest offset as member of groupID.
func (k *KafkaContainer) NewConsumer(groupID string, topics ...string) (*kgo.Client, error) {
	return k.client(
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topics...),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
}

// WaitForRecord polls consumer until match accepts a record or timeout passes.
func WaitForRecord(ctx context.Context, consumer *kgo.Client, timeout time.Duration, match func(*kgo.Record) bool) (*kgo.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		fetches := consumer.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil, kgo.ErrClientClosed
		}
		iter := fetches.RecordIter()
		for !iter.Done() {
			if r := iter.Next(); match(r) {
				return r, nil
			}
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w after %s", ErrNoMatchingRecord, timeout)
		}
	}
}
