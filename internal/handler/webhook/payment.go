// Package webhook receives payment gateway webhook deliveries.
package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/haat/internal/billing"
	"github.com/dukerupert/haat/internal/domain"
	"github.com/dukerupert/haat/internal/handler"
	"github.com/dukerupert/haat/internal/middleware"
	"github.com/dukerupert/haat/internal/postgres"
	"github.com/dukerupert/haat/internal/service"
	"github.com/dukerupert/haat/internal/telemetry"
)

// EventLog records deliveries so each event is applied at most once.
// *postgres.WebhookEventStore implements it.
type EventLog interface {
	Record(ctx context.Context, e postgres.WebhookEvent) (id string, isDuplicate bool, err error)
	MarkProcessed(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, reason string) error
}

// PaymentHandler handles webhook deliveries for one payment provider.
type PaymentHandler struct {
	provider billing.Provider
	orders   service.OrderService
	events   EventLog
	metrics  *telemetry.BusinessMetrics
	logger   *slog.Logger
}

// NewPaymentHandler creates a webhook handler for provider.
func NewPaymentHandler(
	provider billing.Provider,
	orders service.OrderService,
	events EventLog,
	metrics *telemetry.BusinessMetrics,
	logger *slog.Logger,
) *PaymentHandler {
	return &PaymentHandler{
		provider: provider,
		orders:   orders,
		events:   events,
		metrics:  metrics,
		logger:   logger,
	}
}

type webhookResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	OrderID string `json:"orderId,omitempty"`
}

// HandleWebhook processes a delivery:
//
//  1. authenticate the raw body against the provider's signature header
//  2. log it in webhook_events, acknowledging redeliveries without work
//  3. apply it through the order service
//
// Any non-2xx response makes the gateway retry, so events that cannot be
// applied yet are marked failed and reopened on the next delivery.
//
// Local testing with the Stripe CLI:
//
//	stripe listen --forward-to localhost:3000/webhooks/stripe
//	stripe trigger payment_intent.succeeded
func (h *PaymentHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	provider := h.provider.Name()
	logger := middleware.GetLogger(r.Context(), h.logger).With("provider", provider)

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handler.ErrorResponse(w, r, domain.Errorf(domain.ETOOLARGE, "webhook", "Request body too large"))
			return
		}
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "webhook", "Error reading request body"))
		return
	}

	event, err := h.provider.ParseWebhook(payload, r.Header)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrInvalidWebhookSignature):
			logger.Warn("webhook signature rejected", "remote_addr", middleware.GetClientIP(r))
			h.metrics.RecordWebhookResult(provider, "unknown", "rejected", "invalid_signature", time.Since(start).Seconds())
			handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "webhook", "Invalid webhook signature"))
		case errors.Is(err, billing.ErrMalformedWebhook):
			h.metrics.RecordWebhookResult(provider, "unknown", "rejected", "malformed_payload", time.Since(start).Seconds())
			handler.ErrorResponse(w, r, domain.WrapError(err, domain.EINVALID, "webhook", "Invalid webhook payload"))
		default:
			handler.ErrorResponse(w, r, domain.Internal(err, "webhook", "failed to parse webhook"))
		}
		return
	}

	logger = logger.With("event_id", event.ID, "event_type", event.Type)
	h.metrics.RecordWebhookReceived(provider, event.Type)
	telemetry.AddBreadcrumb("webhook", event.Type, map[string]interface{}{
		"provider":         provider,
		"event_id":         event.ID,
		"gateway_order_id": event.GatewayOrderID,
	})

	logID, duplicate, err := h.events.Record(r.Context(), postgres.WebhookEvent{
		Provider:       provider,
		EventID:        event.ID,
		EventType:      event.Type,
		GatewayOrderID: event.GatewayOrderID,
		Payload:        event.Raw,
		SignatureValid: true,
	})
	if err != nil {
		h.metrics.RecordWebhookResult(provider, event.Type, "error", "event_log", time.Since(start).Seconds())
		handler.ErrorResponse(w, r, domain.Internal(err, "webhook", "failed to record webhook event"))
		return
	}
	if duplicate {
		logger.Info("duplicate webhook delivery ignored")
		h.metrics.RecordWebhookResult(provider, event.Type, "duplicate", "", time.Since(start).Seconds())
		handler.JSON(w, http.StatusOK, webhookResponse{Success: true, Message: "Event already processed"})
		return
	}

	result, err := h.orders.HandlePaymentEvent(r.Context(), event)
	if err != nil {
		if markErr := h.events.MarkFailed(r.Context(), logID, err.Error()); markErr != nil {
			logger.Error("failed to mark webhook failed", "error", markErr)
		}
		h.metrics.RecordWebhookResult(provider, event.Type, "error", failureReason(err), time.Since(start).Seconds())
		if domain.ErrorCode(err) == domain.EINTERNAL {
			telemetry.CaptureError(err, map[string]interface{}{
				"provider":         provider,
				"event_id":         event.ID,
				"gateway_order_id": event.GatewayOrderID,
				"payment_id":       event.PaymentID,
			})
		}
		handler.ErrorResponse(w, r, err)
		return
	}

	if err := h.events.MarkProcessed(r.Context(), logID); err != nil {
		logger.Error("failed to mark webhook processed", "error", err)
	}

	outcome := "processed"
	if result.Ignored {
		outcome = "ignored"
	}
	h.metrics.RecordWebhookResult(provider, event.Type, outcome, "", time.Since(start).Seconds())

	resp := webhookResponse{Success: true, Message: result.Message}
	if result.OrderID != uuid.Nil {
		resp.OrderID = result.OrderID.String()
	}
	logger.Info("webhook handled", "outcome", outcome, "order_id", resp.OrderID)
	handler.JSON(w, http.StatusOK, resp)
}

// failureReason is a low-cardinality label for a failed delivery.
func failureReason(err error) string {
	switch domain.ErrorCode(err) {
	case domain.ENOTFOUND:
		return "order_not_found"
	case domain.ECONFLICT:
		return "conflict"
	case domain.EINVALID:
		return "invalid"
	default:
		return "internal"
	}
}
