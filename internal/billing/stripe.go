package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"
	"github.com/stripe/stripe-go/v83/refund"
	"github.com/stripe/stripe-go/v83/webhook"
)

// StripeProvider implements Provider using Stripe Payment Intents.
//
// A Stripe payment intent plays the part of both the gateway order and the
// payment: CreateOrder returns the intent id, and the checkout client reports
// the same id back as the payment id. There is no client-side signature;
// confirmation relies on the server-side fetch of the intent.
type StripeProvider struct {
	publishableKey string
	webhookSecret  string
}

var _ Provider = (*StripeProvider)(nil)

// NewStripeProvider creates a Stripe billing provider and sets the package
// API key used by stripe-go.
func NewStripeProvider(cfg StripeConfig) (*StripeProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	stripe.Key = cfg.APIKey
	return &StripeProvider{
		publishableKey: cfg.PublishableKey,
		webhookSecret:  cfg.WebhookSecret,
	}, nil
}

func (s *StripeProvider) Name() string { return "stripe" }

func (s *StripeProvider) PublicKey() string { return s.publishableKey }

// CreateOrder creates a payment intent. The receipt doubles as the
// idempotency key so a retried checkout reuses the same intent.
func (s *StripeProvider) CreateOrder(ctx context.Context, params CreateOrderParams) (*GatewayOrder, error) {
	if params.AmountPaise < MinimumAmountPaise {
		return nil, ErrAmountTooSmall
	}

	piParams := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(params.AmountPaise),
		Currency: stripe.String(strings.ToLower(params.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	piParams.Context = ctx
	if params.Receipt != "" {
		piParams.SetIdempotencyKey("order-" + params.Receipt)
		piParams.AddMetadata("receipt", params.Receipt)
	}
	for k, v := range params.Notes {
		piParams.AddMetadata(k, v)
	}

	pi, err := paymentintent.New(piParams)
	if err != nil {
		return nil, wrapStripeError(err)
	}

	return &GatewayOrder{
		ID:           pi.ID,
		AmountPaise:  pi.Amount,
		Currency:     strings.ToUpper(string(pi.Currency)),
		Receipt:      pi.Metadata["receipt"],
		Status:       string(pi.Status),
		ClientSecret: pi.ClientSecret,
		CreatedAt:    time.Unix(pi.Created, 0).UTC(),
	}, nil
}

// FetchPayment retrieves a payment intent by id.
func (s *StripeProvider) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	params.AddExpand("latest_charge")

	pi, err := paymentintent.Get(paymentID, params)
	if err != nil {
		if isStripeNotFound(err) {
			return nil, ErrPaymentNotFound
		}
		return nil, wrapStripeError(err)
	}
	return paymentFromIntent(pi), nil
}

// FetchOrderPayments returns the intent itself; Stripe has one payment per intent.
func (s *StripeProvider) FetchOrderPayments(ctx context.Context, gatewayOrderID string) ([]Payment, error) {
	p, err := s.FetchPayment(ctx, gatewayOrderID)
	if errors.Is(err, ErrPaymentNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return []Payment{*p}, nil
}

// Refund refunds a succeeded payment intent.
func (s *StripeProvider) Refund(ctx context.Context, params RefundParams) (*Refund, error) {
	rParams := &stripe.RefundParams{
		PaymentIntent: stripe.String(params.PaymentID),
	}
	rParams.Context = ctx
	if params.AmountPaise > 0 {
		rParams.Amount = stripe.Int64(params.AmountPaise)
	}
	for k, v := range params.Notes {
		rParams.AddMetadata(k, v)
	}
	if params.IdempotencyKey != "" {
		rParams.SetIdempotencyKey(params.IdempotencyKey)
	}

	r, err := refund.New(rParams)
	if err != nil {
		if isStripeNotFound(err) {
			return nil, ErrPaymentNotFound
		}
		return nil, wrapStripeError(err)
	}

	return &Refund{
		ID:          r.ID,
		PaymentID:   params.PaymentID,
		AmountPaise: r.Amount,
		Currency:    strings.ToUpper(string(r.Currency)),
		Status:      string(r.Status),
		CreatedAt:   time.Unix(r.Created, 0).UTC(),
	}, nil
}

// VerifyPaymentSignature accepts the callback when the reported payment is
// the intent created for the order. Capture is established by FetchPayment.
func (s *StripeProvider) VerifyPaymentSignature(gatewayOrderID, paymentID, signature string) error {
	if gatewayOrderID == "" || paymentID != gatewayOrderID {
		return ErrInvalidPaymentSignature
	}
	return nil
}

// ParseWebhook verifies the Stripe-Signature header and maps payment intent
// events onto the normalized event types.
func (s *StripeProvider) ParseWebhook(payload []byte, header http.Header) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, header.Get("Stripe-Signature"), s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhookSignature, err)
	}

	out := &WebhookEvent{
		ID:   event.ID,
		Type: string(event.Type),
		Raw:  payload,
	}

	switch event.Type {
	case "payment_intent.succeeded":
		out.Type = EventPaymentCaptured
	case "payment_intent.payment_failed":
		out.Type = EventPaymentFailed
	default:
		return out, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWebhook, err)
	}
	out.Payment = paymentFromIntent(&pi)
	out.PaymentID = pi.ID
	out.GatewayOrderID = pi.ID
	return out, nil
}

// paymentFromIntent maps intent statuses onto Payment statuses.
func paymentFromIntent(pi *stripe.PaymentIntent) *Payment {
	p := &Payment{
		ID:             pi.ID,
		GatewayOrderID: pi.ID,
		AmountPaise:    pi.Amount,
		Currency:       strings.ToUpper(string(pi.Currency)),
		Email:          pi.ReceiptEmail,
		CreatedAt:      time.Unix(pi.Created, 0).UTC(),
	}
	if len(pi.PaymentMethodTypes) > 0 {
		p.Method = pi.PaymentMethodTypes[0]
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		p.Status = PaymentStatusCaptured
		p.Captured = true
	case stripe.PaymentIntentStatusRequiresCapture:
		p.Status = PaymentStatusAuthorized
	case stripe.PaymentIntentStatusCanceled:
		p.Status = PaymentStatusFailed
	default:
		p.Status = PaymentStatusCreated
	}

	if pi.LatestCharge != nil && pi.LatestCharge.Refunded {
		p.Status = PaymentStatusRefunded
	}
	if pi.LastPaymentError != nil {
		p.ErrorReason = pi.LastPaymentError.Msg
		if p.Status == PaymentStatusCreated {
			p.Status = PaymentStatusFailed
		}
	}
	return p
}

func isStripeNotFound(err error) bool {
	var se *stripe.Error
	return errors.As(err, &se) && se.HTTPStatusCode == http.StatusNotFound
}

// wrapStripeError converts a stripe-go error into a GatewayError.
func wrapStripeError(err error) error {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return &GatewayError{Provider: "stripe", Message: err.Error(), Code: "api_connection_error", Err: err}
	}
	if se.HTTPStatusCode == http.StatusUnauthorized {
		return ErrInvalidAPIKey
	}
	return &GatewayError{
		Provider:   "stripe",
		Message:    se.Msg,
		Code:       string(se.Code),
		StatusCode: se.HTTPStatusCode,
		RequestID:  se.RequestID,
		Err:        err,
	}
}
