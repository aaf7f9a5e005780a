package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusPending, OrderStatusProcessing, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusFailed, true},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusShipped, OrderStatusDelivered, true},

		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusPending, OrderStatusDelivered, false},
		{OrderStatusProcessing, OrderStatusCancelled, false},
		{OrderStatusShipped, OrderStatusPending, false},
		{OrderStatusDelivered, OrderStatusPending, false},
		{OrderStatusCancelled, OrderStatusPending, false},
		{OrderStatusFailed, OrderStatusPending, false},
		{OrderStatusPending, OrderStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOrderStatus_IsTerminal(t *testing.T) {
	for _, s := range []OrderStatus{OrderStatusDelivered, OrderStatusCancelled, OrderStatusFailed} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []OrderStatus{OrderStatusPending, OrderStatusProcessing, OrderStatusShipped} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
	if OrderStatus("returned").IsValid() {
		t.Error("unknown status should be invalid")
	}
}

func TestOrderStatus_ReleasesStock(t *testing.T) {
	for _, s := range []OrderStatus{OrderStatusCancelled, OrderStatusFailed} {
		if !s.ReleasesStock() {
			t.Errorf("%s should release stock", s)
		}
	}
	for _, s := range []OrderStatus{OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered} {
		if s.ReleasesStock() {
			t.Errorf("%s should keep stock", s)
		}
	}
}

func TestPaymentMethod(t *testing.T) {
	tests := []struct {
		method PaymentMethod
		valid  bool
		online bool
	}{
		{PaymentMethodCOD, true, false},
		{PaymentMethodOnline, true, true},
		{PaymentMethodRazorpayUPI, true, true},
		{PaymentMethodCard, true, true},
		{PaymentMethod("bitcoin"), false, false},
		{PaymentMethod(""), false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			if got := tt.method.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
			if got := tt.method.IsOnline(); got != tt.online {
				t.Errorf("IsOnline() = %v, want %v", got, tt.online)
			}
		})
	}
}

func TestOrder_IsPaymentSettled(t *testing.T) {
	tests := []struct {
		name  string
		order Order
		want  bool
	}{
		{"pending", Order{PaymentStatus: PaymentStatusPending}, false},
		{"paid", Order{PaymentStatus: PaymentStatusPaid}, true},
		{"cod with stock taken", Order{PaymentStatus: PaymentStatusCOD, InventoryUpdated: true}, true},
		{"failed", Order{PaymentStatus: PaymentStatusFailed}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.order.IsPaymentSettled(); got != tt.want {
				t.Errorf("IsPaymentSettled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewOrderEvent(t *testing.T) {
	o := &Order{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		Status:        OrderStatusPending,
		PaymentStatus: PaymentStatusPaid,
		Total:         decimal.RequireFromString("220"),
	}

	e := NewOrderEvent(EventOrderPaid, o)
	if e.Type != EventOrderPaid || e.OrderID != o.ID || e.UserID != o.UserID {
		t.Errorf("unexpected event %+v", e)
	}
	if !e.Total.Equal(o.Total) {
		t.Errorf("Total = %s, want %s", e.Total, o.Total)
	}
	if e.OccurredAt.IsZero() {
		t.Error("OccurredAt should be set")
	}
}
