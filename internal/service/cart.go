package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/haat/internal/domain"
	"github.com/dukerupert/haat/internal/repository"
	"github.com/dukerupert/haat/internal/telemetry"
)

// CartService manages the caller's cart. Every operation is scoped to the
// given user; items owned by someone else read as not found.
type CartService interface {
	List(ctx context.Context, userID uuid.UUID) ([]domain.CartItem, error)

	// Add inserts a line or merges the quantity into an existing line for
	// the same product and weight.
	Add(ctx context.Context, userID uuid.UUID, req AddCartItemRequest) (*domain.CartItem, error)

	UpdateQuantity(ctx context.Context, userID uuid.UUID, itemID string, quantity int) (*domain.CartItem, error)
	Remove(ctx context.Context, userID uuid.UUID, itemID string) error

	// Clear empties the cart and returns the number of lines removed.
	Clear(ctx context.Context, userID uuid.UUID) (int64, error)
}

// AddCartItemRequest is a cart line as sent by the client.
type AddCartItemRequest struct {
	ProductID uuid.UUID       `json:"productId" validate:"required"`
	VariantID *uuid.UUID      `json:"variantId,omitempty"`
	WeightID  *uuid.UUID      `json:"weightId,omitempty"`
	Name      string          `json:"name" validate:"required"`
	Price     decimal.Decimal `json:"price" validate:"gt=0"`
	Weight    string          `json:"weight"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity" validate:"gt=0"`
}

type cartService struct {
	queries repository.Querier
	metrics *telemetry.BusinessMetrics
	logger  *slog.Logger
}

// NewCartService creates a new CartService instance.
func NewCartService(queries repository.Querier, metrics *telemetry.BusinessMetrics, logger *slog.Logger) CartService {
	return &cartService{queries: queries, metrics: metrics, logger: logger}
}

func (s *cartService) List(ctx context.Context, userID uuid.UUID) ([]domain.CartItem, error) {
	const op = "cart.list"

	rows, err := s.queries.ListCartItems(ctx, repository.UUID(userID))
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to fetch cart")
	}
	items := make([]domain.CartItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, *cartItemFromRow(row))
	}
	return items, nil
}

func (s *cartService) Add(ctx context.Context, userID uuid.UUID, req AddCartItemRequest) (*domain.CartItem, error) {
	const op = "cart.add"

	if err := validateStruct(op, &req); err != nil {
		return nil, err
	}

	row, err := s.queries.UpsertCartItem(ctx, repository.UpsertCartItemParams{
		UserID:     repository.UUID(userID),
		ProductID:  repository.UUID(req.ProductID),
		VariantID:  repository.NullUUID(req.VariantID),
		WeightID:   repository.NullUUID(req.WeightID),
		Name:       req.Name,
		PricePaise: domain.ToPaise(req.Price),
		Weight:     req.Weight,
		Image:      req.Image,
		Quantity:   int32(req.Quantity),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to add item to cart")
	}

	item := cartItemFromRow(row)
	merged := item.Quantity > req.Quantity
	s.metrics.RecordCartAdd(merged)
	s.logger.Debug("cart item added", "user_id", userID, "product_id", req.ProductID, "quantity", item.Quantity, "merged", merged)
	return item, nil
}

func (s *cartService) UpdateQuantity(ctx context.Context, userID uuid.UUID, itemID string, quantity int) (*domain.CartItem, error) {
	const op = "cart.update"

	id, err := uuid.Parse(itemID)
	if err != nil {
		return nil, domain.ErrCartItemNotFound.WithOp(op)
	}
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity.WithOp(op)
	}

	row, err := s.queries.UpdateCartItemQuantity(ctx, repository.UpdateCartItemQuantityParams{
		ID:       repository.UUID(id),
		UserID:   repository.UUID(userID),
		Quantity: int32(quantity),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCartItemNotFound.WithOp(op)
		}
		return nil, domain.Internal(err, op, "Failed to update cart item")
	}
	return cartItemFromRow(row), nil
}

func (s *cartService) Remove(ctx context.Context, userID uuid.UUID, itemID string) error {
	const op = "cart.remove"

	id, err := uuid.Parse(itemID)
	if err != nil {
		return domain.ErrCartItemNotFound.WithOp(op)
	}

	n, err := s.queries.DeleteCartItem(ctx, repository.DeleteCartItemParams{
		ID:     repository.UUID(id),
		UserID: repository.UUID(userID),
	})
	if err != nil {
		return domain.Internal(err, op, "Failed to remove cart item")
	}
	if n == 0 {
		return domain.ErrCartItemNotFound.WithOp(op)
	}
	return nil
}

func (s *cartService) Clear(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.queries.ClearCart(ctx, repository.UUID(userID))
	if err != nil {
		return 0, domain.Internal(err, "cart.clear", "Failed to clear cart")
	}
	return n, nil
}
