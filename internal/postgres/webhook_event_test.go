package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookEventStore_Record(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewWebhookEventStore(db)
	ctx := context.Background()

	event := WebhookEvent{
		Provider:       "razorpay",
		EventID:        "evt_1",
		EventType:      "payment.captured",
		GatewayOrderID: "order_1",
		Payload:        []byte(`{"event":"payment.captured"}`),
		SignatureValid: true,
	}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO webhook_events`).
			WithArgs("razorpay", "evt_1", "payment.captured",
				sql.NullString{String: "order_1", Valid: true},
				[]byte(`{"event":"payment.captured"}`), true).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("11111111-1111-1111-1111-111111111111"))

		id, dup, err := store.Record(ctx, event)
		assert.NoError(t, err)
		assert.False(t, dup)
		assert.Equal(t, "11111111-1111-1111-1111-111111111111", id)
	})

	t.Run("Duplicate", func(t *testing.T) {
		// ON CONFLICT ... WHERE status = 'failed' returns no row for a
		// delivery already received or processed.
		mock.ExpectQuery(`INSERT INTO webhook_events`).
			WillReturnError(sql.ErrNoRows)

		id, dup, err := store.Record(ctx, event)
		assert.NoError(t, err)
		assert.True(t, dup)
		assert.Empty(t, id)
	})

	t.Run("EmptyPayloadAndOrder", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO webhook_events`).
			WithArgs("stripe", "evt_2", "charge.refunded", sql.NullString{}, []byte("{}"), true).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("22222222-2222-2222-2222-222222222222"))

		_, dup, err := store.Record(ctx, WebhookEvent{
			Provider:       "stripe",
			EventID:        "evt_2",
			EventType:      "charge.refunded",
			SignatureValid: true,
		})
		assert.NoError(t, err)
		assert.False(t, dup)
	})

	t.Run("DBError", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO webhook_events`).
			WillReturnError(errors.New("connection reset"))

		_, _, err := store.Record(ctx, event)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to record webhook event")
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookEventStore_Mark(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewWebhookEventStore(db)
	ctx := context.Background()
	id := "11111111-1111-1111-1111-111111111111"

	t.Run("MarkProcessed", func(t *testing.T) {
		mock.ExpectExec(`UPDATE webhook_events SET status = 'processed', processed_at = NOW\(\) WHERE id = \$1`).
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, store.MarkProcessed(ctx, id))
	})

	t.Run("MarkProcessed_Error", func(t *testing.T) {
		mock.ExpectExec(`UPDATE webhook_events SET status = 'processed'`).
			WithArgs(id).
			WillReturnError(errors.New("db error"))

		assert.Error(t, store.MarkProcessed(ctx, id))
	})

	t.Run("MarkFailed", func(t *testing.T) {
		mock.ExpectExec(`UPDATE webhook_events SET status = 'failed', error_message = \$2`).
			WithArgs(id, "Insufficient stock for Honey").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, store.MarkFailed(ctx, id, "Insufficient stock for Honey"))
	})

	t.Run("MarkFailed_Error", func(t *testing.T) {
		mock.ExpectExec(`UPDATE webhook_events SET status = 'failed'`).
			WithArgs(id, "boom").
			WillReturnError(errors.New("db error"))

		assert.Error(t, store.MarkFailed(ctx, id, "boom"))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
