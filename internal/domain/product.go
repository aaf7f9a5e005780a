package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// CATALOG DOMAIN TYPES
// =============================================================================

// Product is a sellable item with one or more variants.
type Product struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Subtitle      string    `json:"subtitle,omitempty"`
	Description   string    `json:"description,omitempty"`
	Category      string    `json:"category,omitempty"`
	District      string    `json:"district,omitempty"`
	Images        []string  `json:"images"`
	RatingValue   float64   `json:"ratingValue"`
	IsTrending    bool      `json:"isTrending"`
	TrendingOrder int32     `json:"trendingOrder"`
	Variants      []Variant `json:"variants"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Variant is a product configuration (a flavor or blend) holding weight options.
type Variant struct {
	ID      uuid.UUID      `json:"id"`
	Name    string         `json:"name"`
	Weights []WeightOption `json:"weights"`
}

// WeightOption is a sellable unit of a variant with its own price and stock.
// Quantity never goes below zero.
type WeightOption struct {
	ID       uuid.UUID       `json:"id"`
	Value    decimal.Decimal `json:"value"`
	Unit     string          `json:"unit"`
	Price    decimal.Decimal `json:"price"`
	Quantity int32           `json:"quantity"`
}

// Label renders the weight as shown on order lines, e.g. "250g".
func (w WeightOption) Label() string {
	return fmt.Sprintf("%s%s", w.Value.String(), w.Unit)
}

// FirstImage returns the product's primary image or "".
func (p *Product) FirstImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// ProductFilter narrows catalog listings.
type ProductFilter struct {
	Category     *string
	District     *string
	TrendingOnly bool
}

var (
	ErrProductNotFound  = &Error{Code: ENOTFOUND, Message: "Product not found"}
	ErrInvalidProductID = &Error{Code: EINVALID, Message: "Invalid product ID"}
)

// CatalogService provides read access to products for storefront clients.
type CatalogService interface {
	// ListProducts returns products with variants and weights.
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error)

	// GetProduct returns a product or ErrProductNotFound.
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
}
