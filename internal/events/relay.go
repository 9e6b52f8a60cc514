package events

import (
	"context"
	"database/sql"
	"time"

	"github.com/safar/cod-checkout/internal/metrics"
	"github.com/safar/cod-checkout/internal/store"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type Publisher interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Outbox interface {
	FetchPending(ctx context.Context, limit int) ([]store.OutboxEvent, error)
	MarkSent(ctx context.Context, id int64) error
}

type sqlOutbox struct {
	db *sql.DB
}

func NewSQLOutbox(db *sql.DB) Outbox {
	return sqlOutbox{db: db}
}

func (o sqlOutbox) FetchPending(ctx context.Context, limit int) ([]store.OutboxEvent, error) {
	return store.FetchPendingEvents(ctx, o.db, limit)
}

func (o sqlOutbox) MarkSent(ctx context.Context, id int64) error {
	return store.MarkEventSent(ctx, o.db, id)
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

// Relay copies committed outbox rows to Kafka. Delivery is at least once: a
// row is marked sent only after the broker accepted it.
type Relay struct {
	outbox    Outbox
	publisher Publisher
	interval  time.Duration
	batchSize int
	log       logrus.FieldLogger
	metrics   *metrics.Metrics
}

func NewRelay(outbox Outbox, publisher Publisher, interval time.Duration, batchSize int, log logrus.FieldLogger, m *metrics.Metrics) *Relay {
	if interval <= 0 {
		interval = time.Second
	}
	if batchSize < 1 {
		batchSize = 100
	}
	return &Relay{
		outbox:    outbox,
		publisher: publisher,
		interval:  interval,
		batchSize: batchSize,
		log:       log.WithField("component", "outbox-relay"),
		metrics:   m,
	}
}

func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Flush(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Flush publishes one batch and returns how many events were marked sent. It
// stops at the first publish failure so events for an order keep their order.
func (r *Relay) Flush(ctx context.Context) int {
	pending, err := r.outbox.FetchPending(ctx, r.batchSize)
	if err != nil {
		r.log.WithError(err).Error("fetch outbox events")
		return 0
	}

	sent := 0
	for _, event := range pending {
		log := r.log.WithFields(logrus.Fields{
			"event_id":   event.EventID,
			"event_type": event.EventType,
			"order_id":   event.AggregateID,
		})

		msg := kafka.Message{
			Key:   []byte(event.AggregateID.String()),
			Value: event.Payload,
			Headers: []kafka.Header{
				{Key: "event_id", Value: []byte(event.EventID.String())},
				{Key: "event_type", Value: []byte(event.EventType)},
			},
			Time: event.CreatedAt,
		}

		if err := r.publisher.WriteMessages(ctx, msg); err != nil {
			r.metrics.ObserveOutbox("failed")
			log.WithError(err).Warn("publish outbox event")
			return sent
		}

		if err := r.outbox.MarkSent(ctx, event.ID); err != nil {
			r.metrics.ObserveOutbox("unmarked")
			log.WithError(err).Error("mark outbox event sent")
			return sent
		}

		r.metrics.ObserveOutbox("sent")
		sent++
	}

	return sent
}
