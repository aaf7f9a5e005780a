package billing

import (
	"context"
	"net/http"
	"time"
)

// Provider defines the interface for a payment gateway.
// Implementations exist for Razorpay and Stripe.
type Provider interface {
	// Name identifies the provider in logs, metrics and the webhook log.
	Name() string

	// PublicKey returns the publishable key the checkout widget is opened with.
	PublicKey() string

	// CreateOrder registers a payable order with the gateway.
	// The local order id is passed as Receipt so the gateway order can be
	// traced back without a lookup table.
	CreateOrder(ctx context.Context, params CreateOrderParams) (*GatewayOrder, error)

	// FetchPayment retrieves a payment by gateway payment id.
	// Returns ErrPaymentNotFound when the gateway does not know the id.
	FetchPayment(ctx context.Context, paymentID string) (*Payment, error)

	// FetchOrderPayments lists every payment attempted against a gateway order.
	// Used by reconciliation when neither the client nor the webhook reported back.
	FetchOrderPayments(ctx context.Context, gatewayOrderID string) ([]Payment, error)

	// Refund returns money for a captured payment. A zero AmountPaise refunds
	// the full remaining amount.
	Refund(ctx context.Context, params RefundParams) (*Refund, error)

	// VerifyPaymentSignature checks the signature a checkout client returns
	// after paying. Returns ErrInvalidPaymentSignature on mismatch.
	VerifyPaymentSignature(gatewayOrderID, paymentID, signature string) error

	// ParseWebhook authenticates a webhook delivery and normalizes it.
	// Returns ErrInvalidWebhookSignature when the signature does not match
	// the raw body.
	ParseWebhook(payload []byte, header http.Header) (*WebhookEvent, error)
}

// Payment statuses reported by Payment.Status. Provider-specific statuses
// are mapped onto these.
const (
	PaymentStatusCreated    = "created"
	PaymentStatusAuthorized = "authorized"
	PaymentStatusCaptured   = "captured"
	PaymentStatusRefunded   = "refunded"
	PaymentStatusFailed     = "failed"
)

// Normalized webhook event types. Events a provider sends that have no
// equivalent keep their original type and are ignored by the order service.
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
)

// CreateOrderParams contains parameters for creating a gateway order.
type CreateOrderParams struct {
	// AmountPaise is the amount in the smallest currency unit.
	AmountPaise int64

	// Currency code (ISO 4217), e.g. "INR".
	Currency string

	// Receipt is the merchant reference, the local order id.
	Receipt string

	// Notes are stored on the gateway order (order_id, user_id).
	Notes map[string]string
}

// GatewayOrder is a payable order held by the gateway.
type GatewayOrder struct {
	ID          string
	AmountPaise int64
	Currency    string
	Receipt     string
	Status      string

	// ClientSecret is set by providers whose checkout needs it (Stripe).
	ClientSecret string

	CreatedAt time.Time
}

// Payment is a payment attempt as reported by the gateway.
type Payment struct {
	ID             string
	GatewayOrderID string
	AmountPaise    int64
	Currency       string
	Status         string
	Method         string
	Captured       bool
	Bank           string
	Email          string
	Contact        string
	ErrorReason    string
	CreatedAt      time.Time
}

// IsCaptured reports whether funds for the payment are secured.
func (p *Payment) IsCaptured() bool {
	return p.Status == PaymentStatusCaptured || p.Captured
}

// RefundParams contains parameters for refunding a payment.
type RefundParams struct {
	PaymentID string

	// AmountPaise to refund. Zero refunds the full amount.
	AmountPaise int64

	// Notes are stored with the refund (reason).
	Notes map[string]string

	// IdempotencyKey prevents a retried request from refunding twice.
	IdempotencyKey string
}

// Refund is a refund created by the gateway.
type Refund struct {
	ID          string
	PaymentID   string
	AmountPaise int64
	Currency    string
	Status      string
	CreatedAt   time.Time
}

// WebhookEvent is an authenticated, provider-neutral webhook delivery.
type WebhookEvent struct {
	// ID is unique per delivery and used to drop duplicates.
	ID string

	// Type is EventPaymentCaptured, EventPaymentFailed or the provider's own type.
	Type string

	GatewayOrderID string
	PaymentID      string

	// Payment is set for payment events.
	Payment *Payment

	// Raw is the original request body.
	Raw []byte
}
