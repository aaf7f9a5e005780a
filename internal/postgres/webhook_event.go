package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// WebhookEvent is one logged webhook delivery.
type WebhookEvent struct {
	Provider       string
	EventID        string
	EventType      string
	GatewayOrderID string
	Payload        json.RawMessage
	SignatureValid bool
}

// WebhookEventStore records webhook deliveries so a redelivered event is
// applied at most once. It uses database/sql so it can run on the pgx stdlib
// adapter.
type WebhookEventStore struct {
	db *sql.DB
}

// NewWebhookEventStore creates a new WebhookEventStore.
func NewWebhookEventStore(db *sql.DB) *WebhookEventStore {
	return &WebhookEventStore{db: db}
}

// Record logs a delivery. It reports isDuplicate when the event was already
// received or processed; an event whose earlier delivery failed is reopened
// so the retry can be applied.
func (s *WebhookEventStore) Record(ctx context.Context, e WebhookEvent) (id string, isDuplicate bool, err error) {
	const q = `
	INSERT INTO webhook_events (
		provider,
		event_id,
		event_type,
		gateway_order_id,
		payload,
		signature_valid
	)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (provider, event_id)
	DO UPDATE SET status = 'received', error_message = NULL, received_at = NOW()
	WHERE webhook_events.status = 'failed'
	RETURNING id;
	`

	payload := []byte(e.Payload)
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	err = s.db.QueryRowContext(ctx, q,
		e.Provider,
		e.EventID,
		e.EventType,
		nullString(e.GatewayOrderID),
		payload,
		e.SignatureValid,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", true, nil
		}
		return "", false, fmt.Errorf("failed to record webhook event: %w", err)
	}
	return id, false, nil
}

// MarkProcessed records that the event was applied.
func (s *WebhookEventStore) MarkProcessed(ctx context.Context, id string) error {
	const q = `UPDATE webhook_events SET status = 'processed', processed_at = NOW() WHERE id = $1`

	if _, err := s.db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("failed to mark webhook processed: %w", err)
	}
	return nil
}

// MarkFailed records why the event could not be applied.
func (s *WebhookEventStore) MarkFailed(ctx context.Context, id string, reason string) error {
	const q = `UPDATE webhook_events SET status = 'failed', error_message = $2, processed_at = NOW() WHERE id = $1`

	if _, err := s.db.ExecContext(ctx, q, id, reason); err != nil {
		return fmt.Errorf("failed to mark webhook failed: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
