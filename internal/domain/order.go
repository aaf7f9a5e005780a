// Package domain holds the order, catalog and user types shared by the
// services and handlers, plus the coded error type they report with.
package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// ORDER DOMAIN TYPES
// =============================================================================

// OrderStatus is the fulfillment state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusFailed     OrderStatus = "failed"
)

// orderTransitions lists the statuses an order may move to from each state.
// Delivered, cancelled and failed are terminal for manual updates.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled, OrderStatusFailed},
	OrderStatusProcessing: {OrderStatusShipped},
	OrderStatusShipped:    {OrderStatusDelivered},
}

// IsValid reports whether s is a known status.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusFailed:
		return true
	}
	return false
}

// ReleasesStock reports whether an order entering s gives back stock it took.
func (s OrderStatus) ReleasesStock() bool {
	return s == OrderStatusCancelled || s == OrderStatusFailed
}

// CanTransitionTo reports whether the move s -> next is allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further manual transition is possible.
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

// PaymentStatus is the payment state of an order.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
	PaymentStatusCOD      PaymentStatus = "cod"
)

// PaymentMethod is how the customer chose to pay.
type PaymentMethod string

const (
	PaymentMethodCOD                PaymentMethod = "cod"
	PaymentMethodOnline             PaymentMethod = "online"
	PaymentMethodCard               PaymentMethod = "card"
	PaymentMethodUPI                PaymentMethod = "upi"
	PaymentMethodNetbanking         PaymentMethod = "netbanking"
	PaymentMethodRazorpay           PaymentMethod = "razorpay"
	PaymentMethodRazorpayCard       PaymentMethod = "razorpay_card"
	PaymentMethodRazorpayUPI        PaymentMethod = "razorpay_upi"
	PaymentMethodRazorpayNetbanking PaymentMethod = "razorpay_netbanking"
	PaymentMethodRazorpayWallet     PaymentMethod = "razorpay_wallet"
)

// IsValid reports whether m is a known payment method.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCOD, PaymentMethodOnline, PaymentMethodCard, PaymentMethodUPI,
		PaymentMethodNetbanking, PaymentMethodRazorpay, PaymentMethodRazorpayCard,
		PaymentMethodRazorpayUPI, PaymentMethodRazorpayNetbanking, PaymentMethodRazorpayWallet:
		return true
	}
	return false
}

// IsOnline reports whether the method is settled through the payment gateway.
// Every method except cash on delivery is.
func (m PaymentMethod) IsOnline() bool {
	return m.IsValid() && m != PaymentMethodCOD
}

// ShippingAddress is the denormalized delivery address stored on an order.
type ShippingAddress struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email,omitempty"`
	Address  string `json:"address"`
	District string `json:"district"`
	State    string `json:"state"`
	Zip      string `json:"zip"`
}

// OrderItem is a snapshot of a purchased line, not a live catalog reference.
type OrderItem struct {
	ProductID uuid.UUID       `json:"productId"`
	VariantID uuid.UUID       `json:"variantId"`
	WeightID  uuid.UUID       `json:"weightId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Weight    string          `json:"weight"`
	Image     string          `json:"image,omitempty"`
}

// Order is a placed order. Total equals Subtotal plus DeliveryFee.
type Order struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"userId"`
	ShippingAddress
	Items          []OrderItem       `json:"items"`
	Subtotal       decimal.Decimal   `json:"subtotal"`
	DeliveryFee    decimal.Decimal   `json:"deliveryFee"`
	Total          decimal.Decimal   `json:"total"`
	PaymentMethod  PaymentMethod     `json:"paymentMethod"`
	PaymentStatus  PaymentStatus     `json:"paymentStatus"`
	PaymentDetails map[string]string `json:"paymentDetails,omitempty"`
	Status         OrderStatus       `json:"status"`

	// InventoryUpdated guards against decrementing stock twice.
	InventoryUpdated  bool `json:"inventoryUpdated"`
	InventoryRestored bool `json:"inventoryRestored"`

	GatewayOrderID string          `json:"gatewayOrderId,omitempty"`
	PaymentID      string          `json:"paymentId,omitempty"`
	Signature      string          `json:"-"`
	RefundID       string          `json:"refundId,omitempty"`
	RefundedAmount decimal.Decimal `json:"refundedAmount"`

	ShippedAt   *time.Time `json:"shippedAt,omitempty"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// IsPaymentSettled reports whether payment confirmation already ran.
func (o *Order) IsPaymentSettled() bool {
	return o.PaymentStatus == PaymentStatusPaid || o.InventoryUpdated
}

// Pagination describes a page of results.
type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalOrders int64 `json:"totalOrders"`
	Limit       int   `json:"limit"`
}

// OrderPage is one page of an order listing.
type OrderPage struct {
	Orders     []Order    `json:"orders"`
	Pagination Pagination `json:"pagination"`
}

// Order-related domain errors.
var (
	ErrOrderNotFound           = &Error{Code: ENOTFOUND, Message: "Order not found"}
	ErrInvalidOrderID          = &Error{Code: EINVALID, Message: "Invalid order ID"}
	ErrAllOrdersForbidden      = &Error{Code: EFORBIDDEN, Message: "Forbidden: Only admin users can view all orders"}
	ErrInvalidPaymentMethod    = &Error{Code: EINVALID, Message: "Invalid payment method"}
	ErrInvalidStatus           = &Error{Code: EINVALID, Message: "Invalid status"}
	ErrInvalidSignature        = &Error{Code: EINVALID, Message: "Invalid payment signature"}
	ErrPaymentNotCaptured      = &Error{Code: EINVALID, Message: "Payment not captured"}
	ErrGatewayOrderMismatch    = &Error{Code: EINVALID, Message: "Gateway order mismatch"}
	ErrNotOnlineOrder          = &Error{Code: EINVALID, Message: "Order is not an online payment order"}
	ErrNoCapturedPayment       = &Error{Code: EINVALID, Message: "Order has no captured payment"}
	ErrRefundExceedsBalance    = &Error{Code: EINVALID, Message: "Refund amount exceeds refundable balance"}
	ErrOrderCancelled          = &Error{Code: ECONFLICT, Message: "Order is cancelled"}
	ErrPaymentAlreadyProcessed = &Error{Code: ECONFLICT, Message: "Payment already processed"}
	ErrInsufficientStock       = &Error{Code: ECONFLICT, Message: "Insufficient stock for one or more items"}
)

// OrderEvent names published on the order event stream.
const (
	EventOrderCreated       = "order.created"
	EventOrderPaid          = "order.paid"
	EventOrderPaymentFailed = "order.payment_failed"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderRefunded      = "order.refunded"
)

// OrderEvent is the payload published for order lifecycle changes.
type OrderEvent struct {
	Type          string          `json:"type"`
	OrderID       uuid.UUID       `json:"orderId"`
	UserID        uuid.UUID       `json:"userId"`
	Status        OrderStatus     `json:"status"`
	PaymentStatus PaymentStatus   `json:"paymentStatus"`
	Total         decimal.Decimal `json:"total"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

// EventPublisher publishes order lifecycle events. Publishing is best effort;
// callers log failures and continue.
type EventPublisher interface {
	Publish(ctx context.Context, event OrderEvent) error
}

// NewOrderEvent builds an event snapshot of o.
func NewOrderEvent(eventType string, o *Order) OrderEvent {
	return OrderEvent{
		Type:          eventType,
		OrderID:       o.ID,
		UserID:        o.UserID,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		Total:         o.Total,
		OccurredAt:    time.Now().UTC(),
	}
}

// ReconcileSummary counts the outcomes of one pending-payment reconciliation pass.
type ReconcileSummary struct {
	Checked      int `json:"checked"`
	Confirmed    int `json:"confirmed"`
	Expired      int `json:"expired"`
	StillPending int `json:"stillPending"`
	Errors       int `json:"errors"`
}
