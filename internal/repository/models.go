package repository

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID           pgtype.UUID
	Uid          string
	Name         string
	Email        string
	Phone        pgtype.Text
	AuthMethod   string
	IsAdmin      bool
	IsVerified   bool
	OtpHash      pgtype.Text
	OtpCreatedAt pgtype.Timestamptz
	CreatedAt    pgtype.Timestamptz
	UpdatedAt    pgtype.Timestamptz
}

type Product struct {
	ID            pgtype.UUID
	Name          string
	Subtitle      string
	Description   string
	Category      string
	District      string
	Images        []string
	RatingValue   float64
	IsTrending    bool
	TrendingOrder int32
	CreatedAt     pgtype.Timestamptz
	UpdatedAt     pgtype.Timestamptz
}

// ProductOption is a variant joined with one of its weight options.
// Weight columns are NULL for a variant with no weights.
type ProductOption struct {
	ProductID   pgtype.UUID
	VariantID   pgtype.UUID
	VariantName string
	WeightID    pgtype.UUID
	WeightValue pgtype.Text
	WeightUnit  pgtype.Text
	PricePaise  pgtype.Int8
	Quantity    pgtype.Int4
}

type Order struct {
	ID                pgtype.UUID
	UserID            pgtype.UUID
	Name              string
	Phone             string
	Email             pgtype.Text
	Address           string
	District          string
	State             string
	Zip               string
	SubtotalPaise     int64
	DeliveryFeePaise  int64
	TotalPaise        int64
	PaymentMethod     string
	PaymentStatus     string
	PaymentDetails    []byte
	Status            string
	InventoryUpdated  bool
	InventoryRestored bool
	GatewayOrderID    pgtype.Text
	PaymentID         pgtype.Text
	Signature         pgtype.Text
	RefundID          pgtype.Text
	RefundedPaise     int64
	ShippedAt         pgtype.Timestamptz
	DeliveredAt       pgtype.Timestamptz
	CancelledAt       pgtype.Timestamptz
	CreatedAt         pgtype.Timestamptz
	UpdatedAt         pgtype.Timestamptz
}

type OrderItem struct {
	ID         pgtype.UUID
	OrderID    pgtype.UUID
	Position   int32
	ProductID  pgtype.UUID
	VariantID  pgtype.UUID
	WeightID   pgtype.UUID
	Name       string
	PricePaise int64
	Quantity   int32
	Weight     string
	Image      string
}

type CartItem struct {
	ID         pgtype.UUID
	UserID     pgtype.UUID
	ProductID  pgtype.UUID
	VariantID  pgtype.UUID
	WeightID   pgtype.UUID
	Name       string
	PricePaise int64
	Weight     string
	Image      string
	Quantity   int32
	CreatedAt  pgtype.Timestamptz
	UpdatedAt  pgtype.Timestamptz
}

type WishlistItem struct {
	ID         pgtype.UUID
	UserID     pgtype.UUID
	ProductID  pgtype.UUID
	Name       string
	PricePaise int64
	Image      string
	CreatedAt  pgtype.Timestamptz
}

type Job struct {
	ID             pgtype.UUID
	JobType        string
	Queue          string
	Payload        []byte
	Status         string
	Priority       int32
	RetryCount     int32
	MaxRetries     int32
	ScheduledAt    pgtype.Timestamptz
	TimeoutSeconds int32
	WorkerID       pgtype.Text
	ErrorMessage   pgtype.Text
	StartedAt      pgtype.Timestamptz
	CompletedAt    pgtype.Timestamptz
	CreatedAt      pgtype.Timestamptz
}
