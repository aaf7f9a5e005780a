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

// WishlistService manages saved products.
type WishlistService interface {
	List(ctx context.Context, userID uuid.UUID) ([]domain.WishlistItem, error)
	Add(ctx context.Context, userID uuid.UUID, req AddWishlistItemRequest) (*domain.WishlistItem, error)
	Remove(ctx context.Context, userID uuid.UUID, productID string) error
}

// AddWishlistItemRequest is a product to save.
type AddWishlistItemRequest struct {
	ProductID uuid.UUID       `json:"productId" validate:"required"`
	Name      string          `json:"name" validate:"required"`
	Price     decimal.Decimal `json:"price" validate:"gte=0"`
	Image     string          `json:"image"`
}

type wishlistService struct {
	queries repository.Querier
	metrics *telemetry.BusinessMetrics
	logger  *slog.Logger
}

// NewWishlistService creates a new WishlistService instance.
func NewWishlistService(queries repository.Querier, metrics *telemetry.BusinessMetrics, logger *slog.Logger) WishlistService {
	return &wishlistService{queries: queries, metrics: metrics, logger: logger}
}

func (s *wishlistService) List(ctx context.Context, userID uuid.UUID) ([]domain.WishlistItem, error) {
	rows, err := s.queries.ListWishlistItems(ctx, repository.UUID(userID))
	if err != nil {
		return nil, domain.Internal(err, "wishlist.list", "Failed to fetch wishlist")
	}
	items := make([]domain.WishlistItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, *wishlistItemFromRow(row))
	}
	return items, nil
}

func (s *wishlistService) Add(ctx context.Context, userID uuid.UUID, req AddWishlistItemRequest) (*domain.WishlistItem, error) {
	const op = "wishlist.add"

	if err := validateStruct(op, &req); err != nil {
		return nil, err
	}

	row, err := s.queries.CreateWishlistItem(ctx, repository.CreateWishlistItemParams{
		UserID:     repository.UUID(userID),
		ProductID:  repository.UUID(req.ProductID),
		Name:       req.Name,
		PricePaise: domain.ToPaise(req.Price),
		Image:      req.Image,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrWishlistDuplicate.WithOp(op)
		}
		return nil, domain.Internal(err, op, "Failed to add item to wishlist")
	}

	s.metrics.RecordWishlistAdd()
	return wishlistItemFromRow(row), nil
}

func (s *wishlistService) Remove(ctx context.Context, userID uuid.UUID, productID string) error {
	const op = "wishlist.remove"

	id, err := uuid.Parse(productID)
	if err != nil {
		return domain.ErrInvalidProductID.WithOp(op)
	}

	n, err := s.queries.DeleteWishlistItem(ctx, repository.DeleteWishlistItemParams{
		UserID:    repository.UUID(userID),
		ProductID: repository.UUID(id),
	})
	if err != nil {
		return domain.Internal(err, op, "Failed to remove wishlist item")
	}
	if n == 0 {
		return domain.ErrWishlistItemNotFound.WithOp(op)
	}
	return nil
}
