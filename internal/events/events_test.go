package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/haat/internal/domain"
)

type fakeConn struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

func testOrder() *domain.Order {
	return &domain.Order{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		Status:        domain.OrderStatusPending,
		PaymentStatus: domain.PaymentStatusPaid,
		Total:         decimal.RequireFromString("220"),
	}
}

func TestNATSPublisher_Publish(t *testing.T) {
	conn := &fakeConn{}
	p := NewNATSPublisher(conn, "shop", slog.New(slog.NewTextHandler(io.Discard, nil)))

	order := testOrder()
	err := p.Publish(context.Background(), domain.NewOrderEvent(domain.EventOrderPaid, order))
	require.NoError(t, err)

	require.Len(t, conn.subjects, 1)
	assert.Equal(t, "shop.order.paid", conn.subjects[0])

	var got map[string]any
	require.NoError(t, json.Unmarshal(conn.payloads[0], &got))
	assert.Equal(t, "order.paid", got["type"])
	assert.Equal(t, order.ID.String(), got["orderId"])
	assert.Equal(t, "paid", got["paymentStatus"])
	assert.EqualValues(t, 220, got["total"])
}

func TestNATSPublisher_DefaultPrefix(t *testing.T) {
	p := NewNATSPublisher(&fakeConn{}, "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Equal(t, "haat.order.created", p.Subject(domain.EventOrderCreated))
}

func TestNATSPublisher_Errors(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("connection error", func(t *testing.T) {
		p := NewNATSPublisher(&fakeConn{err: errors.New("nats: connection closed")}, "haat", logger)
		err := p.Publish(context.Background(), domain.NewOrderEvent(domain.EventOrderCreated, testOrder()))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "haat.order.created")
	})

	t.Run("cancelled context", func(t *testing.T) {
		conn := &fakeConn{}
		p := NewNATSPublisher(conn, "haat", logger)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := p.Publish(ctx, domain.NewOrderEvent(domain.EventOrderCreated, testOrder()))
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, conn.subjects)
	})
}

func TestNoopPublisher(t *testing.T) {
	assert.NoError(t, NoopPublisher{}.Publish(context.Background(), domain.OrderEvent{}))
}
