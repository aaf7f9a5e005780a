// Package events publishes order lifecycle events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dukerupert/haat/internal/domain"
)

// Conn is the part of a NATS connection the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher publishes events as JSON to "<prefix>.<event type>",
// e.g. "haat.order.paid".
type NATSPublisher struct {
	conn   Conn
	prefix string
	logger *slog.Logger
}

var _ domain.EventPublisher = (*NATSPublisher)(nil)

// NewNATSPublisher wraps an existing connection.
func NewNATSPublisher(conn Conn, prefix string, logger *slog.Logger) *NATSPublisher {
	if prefix == "" {
		prefix = "haat"
	}
	return &NATSPublisher{conn: conn, prefix: prefix, logger: logger}
}

// Connect dials NATS with reconnects enabled. Connection state changes are
// logged.
func Connect(url string, logger *slog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("haat-api"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return nc, nil
}

// Subject returns the subject an event type is published on.
func (p *NATSPublisher) Subject(eventType string) string {
	return p.prefix + "." + eventType
}

func (p *NATSPublisher) Publish(ctx context.Context, event domain.OrderEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	subject := p.Subject(event.Type)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}
	p.logger.Debug("event published", "subject", subject, "order_id", event.OrderID)
	return nil
}

// NoopPublisher drops events. Used when NATS is not configured.
type NoopPublisher struct{}

var _ domain.EventPublisher = NoopPublisher{}

func (NoopPublisher) Publish(context.Context, domain.OrderEvent) error { return nil }
