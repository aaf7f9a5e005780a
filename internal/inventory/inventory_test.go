package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/haat/internal/domain"
	"github.com/dukerupert/haat/internal/repository"
)

type mockStock struct {
	products []repository.Product
	options  []repository.ProductOption

	ListProductsByIDsFunc    func(ctx context.Context, ids []pgtype.UUID) ([]repository.Product, error)
	DecrementWeightStockFunc func(ctx context.Context, arg repository.DecrementWeightStockParams) (int64, error)
	IncrementWeightStockFunc func(ctx context.Context, arg repository.IncrementWeightStockParams) (int64, error)
}

func (m *mockStock) ListProductsByIDs(ctx context.Context, ids []pgtype.UUID) ([]repository.Product, error) {
	if m.ListProductsByIDsFunc != nil {
		return m.ListProductsByIDsFunc(ctx, ids)
	}
	return m.products, nil
}

func (m *mockStock) ListProductOptions(ctx context.Context, productIDs []pgtype.UUID) ([]repository.ProductOption, error) {
	return m.options, nil
}

func (m *mockStock) DecrementWeightStock(ctx context.Context, arg repository.DecrementWeightStockParams) (int64, error) {
	if m.DecrementWeightStockFunc != nil {
		return m.DecrementWeightStockFunc(ctx, arg)
	}
	return 1, nil
}

func (m *mockStock) IncrementWeightStock(ctx context.Context, arg repository.IncrementWeightStockParams) (int64, error) {
	if m.IncrementWeightStockFunc != nil {
		return m.IncrementWeightStockFunc(ctx, arg)
	}
	return 1, nil
}

type catalogFixture struct {
	productID uuid.UUID
	variantID uuid.UUID
	weightID  uuid.UUID
	stock     *mockStock
}

func newFixture(quantity int32) catalogFixture {
	f := catalogFixture{
		productID: uuid.New(),
		variantID: uuid.New(),
		weightID:  uuid.New(),
	}
	f.stock = &mockStock{
		products: []repository.Product{{ID: repository.UUID(f.productID), Name: "Kashmiri Chilli"}},
		options: []repository.ProductOption{{
			ProductID:   repository.UUID(f.productID),
			VariantID:   repository.UUID(f.variantID),
			VariantName: "Whole",
			WeightID:    repository.UUID(f.weightID),
			Quantity:    pgtype.Int4{Int32: quantity, Valid: true},
		}},
	}
	return f
}

func (f catalogFixture) item(quantity int) domain.OrderItem {
	return domain.OrderItem{
		ProductID: f.productID,
		VariantID: f.variantID,
		WeightID:  f.weightID,
		Name:      "Kashmiri Chilli",
		Quantity:  quantity,
	}
}

func TestCheck(t *testing.T) {
	f := newFixture(3)

	tests := []struct {
		name     string
		items    func() []domain.OrderItem
		problems []string
	}{
		{
			name:  "enough stock",
			items: func() []domain.OrderItem { return []domain.OrderItem{f.item(3)} },
		},
		{
			name:     "insufficient stock",
			items:    func() []domain.OrderItem { return []domain.OrderItem{f.item(5)} },
			problems: []string{"Insufficient stock for Kashmiri Chilli. Available: 3, Requested: 5"},
		},
		{
			name: "unknown product",
			items: func() []domain.OrderItem {
				it := f.item(1)
				it.ProductID = uuid.New()
				it.Name = "Ghost"
				return []domain.OrderItem{it}
			},
			problems: []string{"Product Ghost not found"},
		},
		{
			name: "unknown variant",
			items: func() []domain.OrderItem {
				it := f.item(1)
				it.VariantID = uuid.New()
				return []domain.OrderItem{it}
			},
			problems: []string{"Variant not found for product Kashmiri Chilli"},
		},
		{
			name: "unknown weight",
			items: func() []domain.OrderItem {
				it := f.item(1)
				it.WeightID = uuid.New()
				return []domain.OrderItem{it}
			},
			problems: []string{"Weight option not found for product Kashmiri Chilli"},
		},
		{
			name:  "lines sharing a weight option fit together",
			items: func() []domain.OrderItem { return []domain.OrderItem{f.item(1), f.item(2)} },
		},
		{
			name:     "lines sharing a weight option exceed stock together",
			items:    func() []domain.OrderItem { return []domain.OrderItem{f.item(2), f.item(2)} },
			problems: []string{"Insufficient stock for Kashmiri Chilli. Available: 3, Requested: 4"},
		},
		{
			name: "every problem is reported",
			items: func() []domain.OrderItem {
				missing := f.item(1)
				missing.ProductID = uuid.New()
				missing.Name = "Ghost"
				return []domain.OrderItem{missing, f.item(4)}
			},
			problems: []string{
				"Product Ghost not found",
				"Insufficient stock for Kashmiri Chilli. Available: 3, Requested: 4",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(context.Background(), f.stock, tt.items())
			if tt.problems == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
			assert.Equal(t, tt.problems, domain.ErrorDetails(err))
		})
	}
}

func TestCheck_MultipleProblemsUseTitle(t *testing.T) {
	f := newFixture(0)
	missing := f.item(1)
	missing.ProductID = uuid.New()
	err := Check(context.Background(), f.stock, []domain.OrderItem{missing, f.item(2)})

	require.Error(t, err)
	assert.Equal(t, "Stock availability issues", domain.ErrorMessage(err))
	assert.Len(t, domain.ErrorDetails(err), 2)
}

func TestCheck_CatalogPrice(t *testing.T) {
	f := newFixture(5)
	f.stock.options[0].PricePaise = pgtype.Int8{Int64: 12050, Valid: true}

	listed := f.item(1)
	listed.Price = decimal.RequireFromString("120.50")
	require.NoError(t, Check(context.Background(), f.stock, []domain.OrderItem{listed}))

	cheap := f.item(1)
	cheap.Price = decimal.NewFromInt(1)
	err := Check(context.Background(), f.stock, []domain.OrderItem{cheap})
	require.Error(t, err)
	assert.Equal(t, "Price changed for Kashmiri Chilli. Current: 120.50, Requested: 1.00", domain.ErrorMessage(err))
}

func TestCheck_LoadErrorIsInternal(t *testing.T) {
	f := newFixture(3)
	f.stock.ListProductsByIDsFunc = func(ctx context.Context, ids []pgtype.UUID) ([]repository.Product, error) {
		return nil, errors.New("connection reset")
	}

	err := Check(context.Background(), f.stock, []domain.OrderItem{f.item(1)})
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
}

func TestDecrement(t *testing.T) {
	f := newFixture(10)
	second := f.item(2)
	second.Name = "Turmeric"
	second.WeightID = uuid.New()

	t.Run("decrements every line", func(t *testing.T) {
		var calls []repository.DecrementWeightStockParams
		f.stock.DecrementWeightStockFunc = func(ctx context.Context, arg repository.DecrementWeightStockParams) (int64, error) {
			calls = append(calls, arg)
			return 1, nil
		}

		err := Decrement(context.Background(), f.stock, []domain.OrderItem{f.item(3), second})
		require.NoError(t, err)
		require.Len(t, calls, 2)
		assert.Equal(t, int32(3), calls[0].Quantity)
		assert.Equal(t, repository.UUID(f.variantID), calls[0].VariantID)
		assert.Equal(t, repository.UUID(second.WeightID), calls[1].ID)
	})

	t.Run("stops at first refused line", func(t *testing.T) {
		var calls int
		f.stock.DecrementWeightStockFunc = func(ctx context.Context, arg repository.DecrementWeightStockParams) (int64, error) {
			calls++
			if arg.ID == repository.UUID(second.WeightID) {
				return 0, nil
			}
			return 1, nil
		}

		err := Decrement(context.Background(), f.stock, []domain.OrderItem{f.item(1), second, f.item(1)})
		require.Error(t, err)
		assert.Equal(t, 2, calls)
		assert.True(t, errors.Is(err, domain.ErrInsufficientStock))
		assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
		assert.Equal(t, "Insufficient stock for Turmeric", domain.ErrorMessage(err))
	})

	t.Run("database error", func(t *testing.T) {
		f.stock.DecrementWeightStockFunc = func(ctx context.Context, arg repository.DecrementWeightStockParams) (int64, error) {
			return 0, errors.New("deadlock detected")
		}

		err := Decrement(context.Background(), f.stock, []domain.OrderItem{f.item(1)})
		assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
		assert.False(t, errors.Is(err, domain.ErrInsufficientStock))
	})
}

func TestRestore(t *testing.T) {
	f := newFixture(0)
	gone := f.item(1)
	gone.WeightID = uuid.New()

	var restored int32
	f.stock.IncrementWeightStockFunc = func(ctx context.Context, arg repository.IncrementWeightStockParams) (int64, error) {
		if arg.ID == repository.UUID(gone.WeightID) {
			return 0, nil
		}
		restored += arg.Quantity
		return 1, nil
	}

	skipped, err := Restore(context.Background(), f.stock, []domain.OrderItem{f.item(4), gone})
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, int32(4), restored)
}
