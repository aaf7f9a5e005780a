package billing

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockProvider is a mock billing provider for testing.
// Simulates successful payment flows without calling a gateway.
type MockProvider struct {
	// CreateOrderFunc allows customizing gateway order creation behavior
	CreateOrderFunc func(ctx context.Context, params CreateOrderParams) (*GatewayOrder, error)

	// FetchPaymentFunc allows customizing payment retrieval behavior
	FetchPaymentFunc func(ctx context.Context, paymentID string) (*Payment, error)

	// FetchOrderPaymentsFunc allows customizing the payment listing used by reconciliation
	FetchOrderPaymentsFunc func(ctx context.Context, gatewayOrderID string) ([]Payment, error)

	// RefundFunc allows customizing refund behavior
	RefundFunc func(ctx context.Context, params RefundParams) (*Refund, error)

	// VerifyPaymentSignatureFunc allows customizing checkout signature verification
	VerifyPaymentSignatureFunc func(gatewayOrderID, paymentID, signature string) error

	// ParseWebhookFunc allows customizing webhook parsing
	ParseWebhookFunc func(payload []byte, header http.Header) (*WebhookEvent, error)

	// Orders stores created gateway orders for retrieval
	Orders map[string]*GatewayOrder

	// Payments stores payments returned by FetchPayment
	Payments map[string]*Payment

	// CallLog tracks method calls for test assertions
	CallLog []string

	mu sync.Mutex
}

var _ Provider = (*MockProvider)(nil)

// NewMockProvider creates a new mock billing provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Orders:   make(map[string]*GatewayOrder),
		Payments: make(map[string]*Payment),
		CallLog:  []string{},
	}
}

func (m *MockProvider) log(format string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallLog = append(m.CallLog, fmt.Sprintf(format, args...))
}

// Calls returns a copy of the call log.
func (m *MockProvider) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.CallLog...)
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) PublicKey() string { return "rzp_test_mock" }

// CreateOrder creates a mock gateway order.
func (m *MockProvider) CreateOrder(ctx context.Context, params CreateOrderParams) (*GatewayOrder, error) {
	m.log("CreateOrder(%d, %s, %s)", params.AmountPaise, params.Currency, params.Receipt)

	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, params)
	}

	// Default mock behavior: create an unpaid order
	order := &GatewayOrder{
		ID:          "order_" + uuid.New().String()[:14],
		AmountPaise: params.AmountPaise,
		Currency:    params.Currency,
		Receipt:     params.Receipt,
		Status:      "created",
		CreatedAt:   time.Now(),
	}

	m.mu.Lock()
	m.Orders[order.ID] = order
	m.mu.Unlock()
	return order, nil
}

// FetchPayment returns a stored payment.
func (m *MockProvider) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	m.log("FetchPayment(%s)", paymentID)

	if m.FetchPaymentFunc != nil {
		return m.FetchPaymentFunc(ctx, paymentID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Payments[paymentID]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	return p, nil
}

// FetchOrderPayments returns stored payments for a gateway order.
func (m *MockProvider) FetchOrderPayments(ctx context.Context, gatewayOrderID string) ([]Payment, error) {
	m.log("FetchOrderPayments(%s)", gatewayOrderID)

	if m.FetchOrderPaymentsFunc != nil {
		return m.FetchOrderPaymentsFunc(ctx, gatewayOrderID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var payments []Payment
	for _, p := range m.Payments {
		if p.GatewayOrderID == gatewayOrderID {
			payments = append(payments, *p)
		}
	}
	return payments, nil
}

// Refund creates a mock refund.
func (m *MockProvider) Refund(ctx context.Context, params RefundParams) (*Refund, error) {
	m.log("Refund(%s, %d)", params.PaymentID, params.AmountPaise)

	if m.RefundFunc != nil {
		return m.RefundFunc(ctx, params)
	}

	amount := params.AmountPaise
	m.mu.Lock()
	if p, ok := m.Payments[params.PaymentID]; ok && amount == 0 {
		amount = p.AmountPaise
	}
	m.mu.Unlock()

	return &Refund{
		ID:          "rfnd_" + uuid.New().String()[:14],
		PaymentID:   params.PaymentID,
		AmountPaise: amount,
		Currency:    "INR",
		Status:      "processed",
		CreatedAt:   time.Now(),
	}, nil
}

// VerifyPaymentSignature accepts any non-empty signature by default.
func (m *MockProvider) VerifyPaymentSignature(gatewayOrderID, paymentID, signature string) error {
	m.log("VerifyPaymentSignature(%s, %s)", gatewayOrderID, paymentID)

	if m.VerifyPaymentSignatureFunc != nil {
		return m.VerifyPaymentSignatureFunc(gatewayOrderID, paymentID, signature)
	}
	if signature == "" {
		return ErrInvalidPaymentSignature
	}
	return nil
}

// ParseWebhook rejects every delivery unless ParseWebhookFunc is set.
func (m *MockProvider) ParseWebhook(payload []byte, header http.Header) (*WebhookEvent, error) {
	m.log("ParseWebhook")

	if m.ParseWebhookFunc != nil {
		return m.ParseWebhookFunc(payload, header)
	}
	return nil, ErrInvalidWebhookSignature
}

// AddCapturedPayment registers a captured payment against a gateway order.
func (m *MockProvider) AddCapturedPayment(gatewayOrderID, paymentID string, amountPaise int64) *Payment {
	p := &Payment{
		ID:             paymentID,
		GatewayOrderID: gatewayOrderID,
		AmountPaise:    amountPaise,
		Currency:       "INR",
		Status:         PaymentStatusCaptured,
		Method:         "upi",
		Captured:       true,
		CreatedAt:      time.Now(),
	}
	m.mu.Lock()
	m.Payments[paymentID] = p
	m.mu.Unlock()
	return p
}
