package email

import "time"

// EmailTemplate defines the interface for email templates
type EmailTemplate interface {
	Subject() string
	TemplateName() string
	Recipient() string
}

// OrderConfirmationEmail is sent when an order is placed.
type OrderConfirmationEmail struct {
	Email            string
	CustomerName     string
	OrderID          string
	OrderDate        time.Time
	Items            []OrderItem
	SubtotalPaise    int64
	DeliveryFeePaise int64
	TotalPaise       int64
	PaymentMethod    string
	ShippingAddr     Address
}

func (e OrderConfirmationEmail) Subject() string {
	return "Order Confirmation - " + ShortOrderID(e.OrderID)
}

func (e OrderConfirmationEmail) TemplateName() string {
	return "order_confirmation"
}

func (e OrderConfirmationEmail) Recipient() string { return e.Email }

// ShippingConfirmationEmail is sent when an order moves to shipped.
type ShippingConfirmationEmail struct {
	Email        string
	CustomerName string
	OrderID      string
	ShippedDate  time.Time
	Items        []OrderItem
	ShippingAddr Address
}

func (e ShippingConfirmationEmail) Subject() string {
	return "Your Order Has Shipped - " + ShortOrderID(e.OrderID)
}

func (e ShippingConfirmationEmail) TemplateName() string {
	return "shipping_confirmation"
}

func (e ShippingConfirmationEmail) Recipient() string { return e.Email }

// RefundIssuedEmail is sent after a refund is accepted by the gateway.
type RefundIssuedEmail struct {
	Email        string
	CustomerName string
	OrderID      string
	AmountPaise  int64
	Reason       string
	FullRefund   bool
}

func (e RefundIssuedEmail) Subject() string {
	return "Refund Issued - " + ShortOrderID(e.OrderID)
}

func (e RefundIssuedEmail) TemplateName() string {
	return "refund_issued"
}

func (e RefundIssuedEmail) Recipient() string { return e.Email }

// Supporting types

// OrderItem represents a line item in an order
type OrderItem struct {
	ProductName string
	Weight      string // e.g. "250g"
	Quantity    int
	PricePaise  int64
	TotalPaise  int64
	ImageURL    string // Optional product image
}

// Address represents a delivery address
type Address struct {
	Name     string
	Phone    string
	Line1    string
	District string
	State    string
	Zip      string
}

// ShortOrderID returns the first eight characters of an order id, the form
// shown to customers.
func ShortOrderID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
