package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/haat/internal/domain"
	"github.com/dukerupert/haat/internal/repository"
)

// ProductService implements domain.CatalogService using PostgreSQL.
type ProductService struct {
	repo repository.Querier
}

// Compile-time check to ensure ProductService implements domain.CatalogService.
var _ domain.CatalogService = (*ProductService)(nil)

// NewProductService creates a new ProductService instance.
func NewProductService(repo repository.Querier) *ProductService {
	return &ProductService{repo: repo}
}

// ListProducts returns products with their variants and weight options.
func (s *ProductService) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	params := repository.ListProductsParams{TrendingOnly: filter.TrendingOnly}
	if filter.Category != nil {
		params.Category = repository.Text(*filter.Category)
	}
	if filter.District != nil {
		params.District = repository.Text(*filter.District)
	}

	rows, err := s.repo.ListProducts(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	if len(rows) == 0 {
		return []domain.Product{}, nil
	}

	ids := make([]pgtype.UUID, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	options, err := s.repo.ListProductOptions(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list product options: %w", err)
	}

	return mapProducts(rows, options), nil
}

// GetProduct returns a single product or domain.ErrProductNotFound.
func (s *ProductService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	row, err := s.repo.GetProduct(ctx, repository.UUID(id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	options, err := s.repo.ListProductOptions(ctx, []pgtype.UUID{row.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to list product options: %w", err)
	}

	products := mapProducts([]repository.Product{row}, options)
	return &products[0], nil
}

// mapProducts assembles products with their variants and weights.
// options must be ordered by product, variant and weight.
func mapProducts(rows []repository.Product, options []repository.ProductOption) []domain.Product {
	variants := make(map[uuid.UUID][]domain.Variant)
	for _, opt := range options {
		productID := repository.FromUUID(opt.ProductID)
		variantID := repository.FromUUID(opt.VariantID)

		list := variants[productID]
		if len(list) == 0 || list[len(list)-1].ID != variantID {
			list = append(list, domain.Variant{
				ID:      variantID,
				Name:    opt.VariantName,
				Weights: []domain.WeightOption{},
			})
		}
		if opt.WeightID.Valid {
			value, err := decimal.NewFromString(opt.WeightValue.String)
			if err != nil {
				value = decimal.Zero
			}
			v := &list[len(list)-1]
			v.Weights = append(v.Weights, domain.WeightOption{
				ID:       repository.FromUUID(opt.WeightID),
				Value:    value,
				Unit:     opt.WeightUnit.String,
				Price:    domain.FromPaise(opt.PricePaise.Int64),
				Quantity: opt.Quantity.Int32,
			})
		}
		variants[productID] = list
	}

	out := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		id := repository.FromUUID(row.ID)
		images := row.Images
		if images == nil {
			images = []string{}
		}
		vs := variants[id]
		if vs == nil {
			vs = []domain.Variant{}
		}
		out = append(out, domain.Product{
			ID:            id,
			Name:          row.Name,
			Subtitle:      row.Subtitle,
			Description:   row.Description,
			Category:      row.Category,
			District:      row.District,
			Images:        images,
			RatingValue:   row.RatingValue,
			IsTrending:    row.IsTrending,
			TrendingOrder: row.TrendingOrder,
			Variants:      vs,
			CreatedAt:     row.CreatedAt.Time,
		})
	}
	return out
}
