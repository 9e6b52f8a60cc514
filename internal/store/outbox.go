package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type OutboxEvent struct {
	ID          int64
	EventID     uuid.UUID
	AggregateID uuid.UUID
	EventType   string
	Payload     json.RawMessage
	CreatedAt   time.Time
	SentAt      *time.Time
}

// InsertOutboxEvent records an event in the caller's transaction so it is
// published only if the surrounding change commits.
func InsertOutboxEvent(ctx context.Context, db DBTX, aggregateID uuid.UUID, eventType string, payload any) (uuid.UUID, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	eventID := uuid.New()
	_, err = db.ExecContext(ctx,
		`INSERT INTO outbox_events (event_id, aggregate_id, event_type, payload, created_at)
		 VALUES ($1, $2, $3, $4, NOW())`,
		eventID, aggregateID, eventType, string(data))
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert outbox event: %w", err)
	}

	return eventID, nil
}

func FetchPendingEvents(ctx context.Context, db DBTX, limit int) ([]OutboxEvent, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, event_id, aggregate_id, event_type, payload, created_at, sent_at
		 FROM outbox_events
		 WHERE sent_at IS NULL
		 ORDER BY id
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch outbox events: %w", err)
	}
	defer rows.Close()

	var events []OutboxEvent
	for rows.Next() {
		var event OutboxEvent
		err := rows.Scan(
			&event.ID,
			&event.EventID,
			&event.AggregateID,
			&event.EventType,
			&event.Payload,
			&event.CreatedAt,
			&event.SentAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return events, nil
}

func MarkEventSent(ctx context.Context, db DBTX, id int64) error {
	_, err := db.ExecContext(ctx, `UPDATE outbox_events SET sent_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark outbox event %d sent: %w", id, err)
	}
	return nil
}
