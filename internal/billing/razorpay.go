package billing

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const razorpayBaseURL = "https://api.razorpay.com/v1"

// RazorpayProvider implements Provider against the Razorpay REST API.
type RazorpayProvider struct {
	keyID         string
	keySecret     string
	webhookSecret string
	baseURL       string
	httpClient    *http.Client
}

var _ Provider = (*RazorpayProvider)(nil)

// NewRazorpayProvider creates a Razorpay billing provider.
func NewRazorpayProvider(cfg RazorpayConfig) (*RazorpayProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = razorpayBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &RazorpayProvider{
		keyID:         cfg.KeyID,
		keySecret:     cfg.KeySecret,
		webhookSecret: cfg.WebhookSecret,
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:    &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport},
	}, nil
}

func (r *RazorpayProvider) Name() string { return "razorpay" }

func (r *RazorpayProvider) PublicKey() string { return r.keyID }

// razorpayOrder is the order entity returned by the API.
type razorpayOrder struct {
	ID        string `json:"id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Receipt   string `json:"receipt"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

// razorpayPayment is the payment entity returned by the API and embedded in
// webhook payloads.
type razorpayPayment struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	Method           string `json:"method"`
	Captured         bool   `json:"captured"`
	Bank             string `json:"bank"`
	Email            string `json:"email"`
	Contact          string `json:"contact"`
	ErrorDescription string `json:"error_description"`
	CreatedAt        int64  `json:"created_at"`
}

func (p razorpayPayment) toPayment() *Payment {
	return &Payment{
		ID:             p.ID,
		GatewayOrderID: p.OrderID,
		AmountPaise:    p.Amount,
		Currency:       p.Currency,
		Status:         p.Status,
		Method:         p.Method,
		Captured:       p.Captured,
		Bank:           p.Bank,
		Email:          p.Email,
		Contact:        p.Contact,
		ErrorReason:    p.ErrorDescription,
		CreatedAt:      time.Unix(p.CreatedAt, 0).UTC(),
	}
}

type razorpayRefund struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

type razorpayErrorBody struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder creates a Razorpay order with automatic capture.
func (r *RazorpayProvider) CreateOrder(ctx context.Context, params CreateOrderParams) (*GatewayOrder, error) {
	if params.AmountPaise < MinimumAmountPaise {
		return nil, ErrAmountTooSmall
	}

	body := map[string]any{
		"amount":          params.AmountPaise,
		"currency":        params.Currency,
		"receipt":         params.Receipt,
		"payment_capture": 1,
	}
	if len(params.Notes) > 0 {
		body["notes"] = params.Notes
	}

	var order razorpayOrder
	if err := r.do(ctx, http.MethodPost, "/orders", body, &order); err != nil {
		return nil, err
	}

	return &GatewayOrder{
		ID:          order.ID,
		AmountPaise: order.Amount,
		Currency:    order.Currency,
		Receipt:     order.Receipt,
		Status:      order.Status,
		CreatedAt:   time.Unix(order.CreatedAt, 0).UTC(),
	}, nil
}

// FetchPayment retrieves a payment by id.
func (r *RazorpayProvider) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	var p razorpayPayment
	err := r.do(ctx, http.MethodGet, "/payments/"+url.PathEscape(paymentID), nil, &p)
	if isNotFound(err) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return p.toPayment(), nil
}

// FetchOrderPayments lists the payments made against a Razorpay order.
func (r *RazorpayProvider) FetchOrderPayments(ctx context.Context, gatewayOrderID string) ([]Payment, error) {
	var collection struct {
		Count int               `json:"count"`
		Items []razorpayPayment `json:"items"`
	}
	err := r.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(gatewayOrderID)+"/payments", nil, &collection)
	if isNotFound(err) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	payments := make([]Payment, 0, len(collection.Items))
	for _, item := range collection.Items {
		payments = append(payments, *item.toPayment())
	}
	return payments, nil
}

// Refund refunds a captured payment, fully or partially.
func (r *RazorpayProvider) Refund(ctx context.Context, params RefundParams) (*Refund, error) {
	body := map[string]any{}
	if params.AmountPaise > 0 {
		body["amount"] = params.AmountPaise
	}
	if len(params.Notes) > 0 {
		body["notes"] = params.Notes
	}
	if params.IdempotencyKey != "" {
		body["receipt"] = params.IdempotencyKey
	}

	var refund razorpayRefund
	err := r.do(ctx, http.MethodPost, "/payments/"+url.PathEscape(params.PaymentID)+"/refund", body, &refund)
	if isNotFound(err) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}

	return &Refund{
		ID:          refund.ID,
		PaymentID:   refund.PaymentID,
		AmountPaise: refund.Amount,
		Currency:    refund.Currency,
		Status:      refund.Status,
		CreatedAt:   time.Unix(refund.CreatedAt, 0).UTC(),
	}, nil
}

// VerifyPaymentSignature checks the checkout signature, an HMAC-SHA256 of
// "<order id>|<payment id>" keyed with the key secret.
func (r *RazorpayProvider) VerifyPaymentSignature(gatewayOrderID, paymentID, signature string) error {
	if gatewayOrderID == "" || paymentID == "" || signature == "" {
		return ErrInvalidPaymentSignature
	}
	if !VerifyHMAC(r.keySecret, []byte(gatewayOrderID+"|"+paymentID), signature) {
		return ErrInvalidPaymentSignature
	}
	return nil
}

type razorpayWebhook struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity razorpayPayment `json:"entity"`
		} `json:"payment"`
		Order *struct {
			Entity razorpayOrder `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
	CreatedAt int64 `json:"created_at"`
}

// ParseWebhook verifies X-Razorpay-Signature over the raw body with the
// webhook secret and decodes the event.
func (r *RazorpayProvider) ParseWebhook(payload []byte, header http.Header) (*WebhookEvent, error) {
	signature := header.Get("X-Razorpay-Signature")
	if signature == "" || !VerifyHMAC(r.webhookSecret, payload, signature) {
		return nil, ErrInvalidWebhookSignature
	}

	var wh razorpayWebhook
	if err := json.Unmarshal(payload, &wh); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWebhook, err)
	}
	if wh.Event == "" {
		return nil, ErrMalformedWebhook
	}

	event := &WebhookEvent{
		ID:   header.Get("X-Razorpay-Event-Id"),
		Type: wh.Event,
		Raw:  payload,
	}
	if wh.Payload.Payment != nil {
		event.Payment = wh.Payload.Payment.Entity.toPayment()
		event.PaymentID = event.Payment.ID
		event.GatewayOrderID = event.Payment.GatewayOrderID
	}
	if event.GatewayOrderID == "" && wh.Payload.Order != nil {
		event.GatewayOrderID = wh.Payload.Order.Entity.ID
	}
	if event.ID == "" {
		// Older deliveries lack the event id header.
		event.ID = fmt.Sprintf("%s:%s:%s", wh.Event, event.GatewayOrderID, event.PaymentID)
	}
	return event, nil
}

// do sends an authenticated JSON request and decodes a 2xx body into out.
func (r *RazorpayProvider) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal razorpay request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build razorpay request: %w", err)
	}
	req.SetBasicAuth(r.keyID, r.keySecret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return &GatewayError{
			Provider: "razorpay",
			Message:  "request failed",
			Code:     "api_connection_error",
			Err:      err,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read razorpay response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusUnauthorized {
			return ErrInvalidAPIKey
		}
		var eb razorpayErrorBody
		_ = json.Unmarshal(respBody, &eb)
		msg := eb.Error.Description
		if msg == "" {
			msg = strings.TrimSpace(string(respBody))
		}
		return &GatewayError{
			Provider:   "razorpay",
			Message:    msg,
			Code:       eb.Error.Code,
			StatusCode: resp.StatusCode,
			RequestID:  resp.Header.Get("X-Razorpay-Request-Id"),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode razorpay response: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var ge *GatewayError
	if !errors.As(err, &ge) {
		return false
	}
	if ge.StatusCode == http.StatusNotFound {
		return true
	}
	// Razorpay answers unknown ids with 400 BAD_REQUEST_ERROR.
	return ge.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(ge.Message), "does not exist")
}

// SignHMAC returns the hex HMAC-SHA256 of payload keyed with secret.
func SignHMAC(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMAC compares signature against the expected HMAC in constant time.
func VerifyHMAC(secret string, payload []byte, signature string) bool {
	expected := SignHMAC(secret, payload)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}
