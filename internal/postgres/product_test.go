package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/haat/internal/domain"
	"github.com/dukerupert/haat/internal/repository"
	"github.com/dukerupert/haat/internal/repository/repotest"
)

func seedCatalog(store *repotest.Store) (chilli, tea uuid.UUID) {
	chilli = store.AddProduct(repository.Product{
		Name:     "Kashmiri Chilli",
		Category: "spices",
		District: "Srinagar",
		Images:   []string{"chilli.jpg"},
	})
	whole := store.AddVariant(chilli, "Whole")
	store.AddWeight(whole, repotest.SeedWeight{Value: "250", Unit: "g", PricePaise: 12050, Quantity: 10})
	store.AddWeight(whole, repotest.SeedWeight{Value: "0.5", Unit: "kg", PricePaise: 22000, Quantity: 0})
	store.AddVariant(chilli, "Powder")

	tea = store.AddProduct(repository.Product{
		Name:          "Darjeeling First Flush",
		Category:      "tea",
		District:      "Darjeeling",
		IsTrending:    true,
		TrendingOrder: 1,
	})
	return chilli, tea
}

func TestProductService_ListProducts(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	chilli, tea := seedCatalog(store)
	svc := NewProductService(store)

	all, err := svc.ListProducts(ctx, domain.ProductFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	byID := map[uuid.UUID]domain.Product{}
	for _, p := range all {
		byID[p.ID] = p
	}

	p := byID[chilli]
	require.Len(t, p.Variants, 2)
	assert.Equal(t, "Whole", p.Variants[0].Name)
	require.Len(t, p.Variants[0].Weights, 2)
	w := p.Variants[0].Weights[0]
	assert.Equal(t, "250g", w.Label())
	assert.True(t, decimal.RequireFromString("120.50").Equal(w.Price))
	assert.Equal(t, int32(10), w.Quantity)
	assert.Equal(t, "0.5kg", p.Variants[0].Weights[1].Label())
	assert.Equal(t, "Powder", p.Variants[1].Name)
	assert.Empty(t, p.Variants[1].Weights)
	assert.NotNil(t, p.Variants[1].Weights)

	assert.Empty(t, byID[tea].Variants)
	assert.NotNil(t, byID[tea].Images)

	category := "tea"
	filtered, err := svc.ListProducts(ctx, domain.ProductFilter{Category: &category})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, tea, filtered[0].ID)

	trending, err := svc.ListProducts(ctx, domain.ProductFilter{TrendingOnly: true})
	require.NoError(t, err)
	require.Len(t, trending, 1)

	nowhere := "Atlantis"
	none, err := svc.ListProducts(ctx, domain.ProductFilter{District: &nowhere})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestProductService_GetProduct(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	chilli, _ := seedCatalog(store)
	svc := NewProductService(store)

	p, err := svc.GetProduct(ctx, chilli)
	require.NoError(t, err)
	assert.Equal(t, "Kashmiri Chilli", p.Name)
	assert.Equal(t, "chilli.jpg", p.FirstImage())
	assert.Len(t, p.Variants, 2)

	_, err = svc.GetProduct(ctx, uuid.New())
	assert.True(t, errors.Is(err, domain.ErrProductNotFound))
}

func TestMapProducts_BadWeightValue(t *testing.T) {
	productID := uuid.New()
	products := mapProducts(
		[]repository.Product{{ID: repository.UUID(productID), Name: "Saffron"}},
		[]repository.ProductOption{{
			ProductID:   repository.UUID(productID),
			VariantID:   repository.UUID(uuid.New()),
			VariantName: "Grade A",
			WeightID:    repository.UUID(uuid.New()),
			WeightValue: repository.Text("one"),
			WeightUnit:  repository.Text("g"),
		}},
	)
	require.Len(t, products, 1)
	require.Len(t, products[0].Variants[0].Weights, 1)
	assert.True(t, products[0].Variants[0].Weights[0].Value.IsZero())
}
