package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/safar/cod-checkout/internal/metrics"
	"github.com/safar/cod-checkout/internal/store"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type outboxMock struct {
	pending  []store.OutboxEvent
	fetchErr error
	marked   []int64
}

func (m *outboxMock) FetchPending(ctx context.Context, limit int) ([]store.OutboxEvent, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	if len(m.pending) > limit {
		return m.pending[:limit], nil
	}
	return m.pending, nil
}

func (m *outboxMock) MarkSent(ctx context.Context, id int64) error {
	m.marked = append(m.marked, id)
	return nil
}

type publisherMock struct {
	failAfter int
	written   []kafka.Message
}

func (p *publisherMock) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if p.failAfter >= 0 && len(p.written) >= p.failAfter {
		return errors.New("broker unavailable")
	}
	p.written = append(p.written, msgs...)
	return nil
}

// --- helper ---

func newEvents(n int) []store.OutboxEvent {
	order := uuid.New()
	out := make([]store.OutboxEvent, n)
	for i := range out {
		out[i] = store.OutboxEvent{
			ID:          int64(i + 1),
			EventID:     uuid.New(),
			AggregateID: order,
			EventType:   "order.finalized",
			Payload:     []byte(`{"status":"AWAITING_COD"}`),
			CreatedAt:   time.Now(),
		}
	}
	return out
}

func newTestRelay(outbox Outbox, pub Publisher, batch int) (*Relay, *metrics.Metrics) {
	logger, _ := test.NewNullLogger()
	m := metrics.New(prometheus.NewRegistry())
	return NewRelay(outbox, pub, time.Millisecond, batch, logger, m), m
}

// --- tests ---

func TestFlushPublishesAndMarksEvents(t *testing.T) {
	outbox := &outboxMock{pending: newEvents(3)}
	pub := &publisherMock{failAfter: -1}
	relay, m := newTestRelay(outbox, pub, 10)

	sent := relay.Flush(context.Background())

	assert.Equal(t, 3, sent)
	assert.Equal(t, []int64{1, 2, 3}, outbox.marked)
	require.Len(t, pub.written, 3)

	msg := pub.written[0]
	assert.Equal(t, outbox.pending[0].AggregateID.String(), string(msg.Key))
	assert.JSONEq(t, `{"status":"AWAITING_COD"}`, string(msg.Value))
	assert.Equal(t, "event_type", msg.Headers[1].Key)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.OutboxPublished.WithLabelValues("sent")))
}

func TestFlushStopsAtFirstPublishFailure(t *testing.T) {
	outbox := &outboxMock{pending: newEvents(3)}
	pub := &publisherMock{failAfter: 1}
	relay, m := newTestRelay(outbox, pub, 10)

	sent := relay.Flush(context.Background())

	assert.Equal(t, 1, sent)
	assert.Equal(t, []int64{1}, outbox.marked)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboxPublished.WithLabelValues("failed")))
}

func TestFlushRespectsBatchSize(t *testing.T) {
	outbox := &outboxMock{pending: newEvents(5)}
	relay, _ := newTestRelay(outbox, &publisherMock{failAfter: -1}, 2)

	assert.Equal(t, 2, relay.Flush(context.Background()))
}

func TestFlushFetchError(t *testing.T) {
	outbox := &outboxMock{fetchErr: errors.New("db down")}
	pub := &publisherMock{failAfter: -1}
	relay, _ := newTestRelay(outbox, pub, 10)

	assert.Equal(t, 0, relay.Flush(context.Background()))
	assert.Empty(t, pub.written)
}

func TestRunStopsOnCancel(t *testing.T) {
	relay, _ := newTestRelay(&outboxMock{}, &publisherMock{failAfter: -1}, 10)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		relay.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop after cancel")
	}
}

func TestNewRelayDefaultsNonPositiveInterval(t *testing.T) {
	logger, _ := test.NewNullLogger()
	relay := NewRelay(&outboxMock{}, &publisherMock{failAfter: -1}, 0, 0, logger, nil)

	assert.Equal(t, time.Second, relay.interval)
	assert.Equal(t, 100, relay.batchSize)
}
