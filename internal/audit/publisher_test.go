package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"billdash/internal/platform/kafka/producer"
	"billdash/pkg/platform/circuit"
)

type PublisherSuite struct {
	suite.Suite
	ctx   context.Context
	store *InMemoryStore
	now   time.Time
}

func TestPublisherSuite(t *testing.T) {
	suite.Run(t, new(PublisherSuite))
}

func (s *PublisherSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemoryStore()
	s.now = time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)
}

// recordingSink collects forwarded events and fails while err is set.
type recordingSink struct {
	mu     sync.Mutex
	err    error
	events []Event
}

func (r *recordingSink) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// =============================================================================
// Store
// =============================================================================

func (s *PublisherSuite) TestEmitStampsAndStores() {
	p := NewPublisher(s.store, WithClock(func() time.Time { return s.now }))
	defer p.Close()

	s.Require().NoError(p.Emit(s.ctx, Event{TenantID: "t1", Action: ActionTenantRegistered}))
	s.Require().NoError(p.Emit(s.ctx, Event{TenantID: "t1", Action: ActionInvoiceGenerated}))
	s.Require().NoError(p.Emit(s.ctx, Event{TenantID: "t2", Action: ActionLoginFailed}))

	events, err := p.List(s.ctx, "t1", 0)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(ActionInvoiceGenerated, events[0].Action, "newest first")
	s.NotEmpty(events[0].ID)
	s.Equal(s.now, events[0].Timestamp)

	limited, err := p.List(s.ctx, "t1", 1)
	s.Require().NoError(err)
	s.Len(limited, 1)
}

func (s *PublisherSuite) TestRetentionDropsOldest() {
	st := NewInMemoryStore()
	st.retention = 3
	for i := 0; i < 5; i++ {
		s.Require().NoError(st.Append(s.ctx, Event{ID: string(rune('a' + i)), TenantID: "t1"}))
	}
	events, err := st.ListByTenant(s.ctx, "t1", 0)
	s.Require().NoError(err)
	s.Require().Len(events, 3)
	s.Equal("e", events[0].ID)
	s.Equal("c", events[2].ID)
}

// =============================================================================
// Sink forwarding
// =============================================================================

func (s *PublisherSuite) TestSinkReceivesEventsOnClose() {
	sink := &recordingSink{}
	p := NewPublisher(s.store, WithSink(sink, 10))

	for i := 0; i < 4; i++ {
		s.Require().NoError(p.Emit(s.ctx, Event{TenantID: "t1", Action: ActionLoginSucceeded}))
	}
	p.Close()
	p.Close()

	s.Equal(4, sink.count())
}

func (s *PublisherSuite) TestFailingSinkNeverFailsEmit() {
	sink := &recordingSink{err: errors.New("broker down")}
	breaker := circuit.New("audit-sink", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))
	p := NewPublisher(s.store, WithSink(sink, 10), WithBreaker(breaker))

	for i := 0; i < 5; i++ {
		s.Require().NoError(p.Emit(s.ctx, Event{TenantID: "t1", Action: ActionQuotaExceeded}))
	}
	p.Close()

	s.Equal(circuit.StateOpen, breaker.State())
	events, err := p.List(s.ctx, "t1", 0)
	s.Require().NoError(err)
	s.Len(events, 5, "store keeps every event while the sink is down")
}

// =============================================================================
// Kafka sink
// =============================================================================

type mockProducer struct {
	mock.Mock
}

func (m *mockProducer) Produce(ctx context.Context, msg *producer.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (s *PublisherSuite) TestKafkaSinkKeysByTenant() {
	prod := new(mockProducer)
	prod.On("Produce", mock.Anything, mock.MatchedBy(func(msg *producer.Message) bool {
		return msg.Topic == DefaultTopic &&
			string(msg.Key) == "t1" &&
			msg.Headers["action"] == string(ActionInvoiceGenerated)
	})).Return(nil).Once()

	sink := NewKafkaSink(prod, "")
	err := sink.Publish(s.ctx, Event{ID: "e1", TenantID: "t1", Action: ActionInvoiceGenerated, Timestamp: s.now})
	s.Require().NoError(err)
	prod.AssertExpectations(s.T())
}
