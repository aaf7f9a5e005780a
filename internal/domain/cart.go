package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// CART AND WISHLIST DOMAIN TYPES
// =============================================================================

var (
	ErrCartItemNotFound     = &Error{Code: ENOTFOUND, Message: "Cart item not found"}
	ErrInvalidQuantity      = &Error{Code: EINVALID, Message: "Quantity must be greater than 0"}
	ErrWishlistDuplicate    = &Error{Code: ECONFLICT, Message: "Item already in wishlist"}
	ErrWishlistItemNotFound = &Error{Code: ENOTFOUND, Message: "Wishlist item not found"}
)

// CartItem is a line in a user's cart. (UserID, ProductID, Weight) is unique;
// adding the same tuple again merges quantities.
type CartItem struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"userId"`
	ProductID uuid.UUID       `json:"productId"`
	VariantID *uuid.UUID      `json:"variantId,omitempty"`
	WeightID  *uuid.UUID      `json:"weightId,omitempty"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Weight    string          `json:"weight"`
	Image     string          `json:"image,omitempty"`
	Quantity  int             `json:"quantity"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// WishlistItem is a saved product. (UserID, ProductID) is unique.
type WishlistItem struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"userId"`
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}
