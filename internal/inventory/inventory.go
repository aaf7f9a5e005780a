// Package inventory checks and moves stock held on product weight options.
//
// Check reports every problem with a requested item list at once so the
// client can fix its cart in one round trip. Decrement is the authority on
// stock: it issues one conditional update per line and fails on the first
// line that cannot be covered, leaving rollback to the caller's transaction.
package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dukerupert/haat/internal/domain"
	"github.com/dukerupert/haat/internal/repository"
)

// StockReader loads the catalog rows needed to check availability.
type StockReader interface {
	ListProductsByIDs(ctx context.Context, ids []pgtype.UUID) ([]repository.Product, error)
	ListProductOptions(ctx context.Context, productIDs []pgtype.UUID) ([]repository.ProductOption, error)
}

// StockWriter moves stock. Implementations run inside the caller's transaction.
type StockWriter interface {
	DecrementWeightStock(ctx context.Context, arg repository.DecrementWeightStockParams) (int64, error)
	IncrementWeightStock(ctx context.Context, arg repository.IncrementWeightStockParams) (int64, error)
}

type weightStock struct {
	variantID  uuid.UUID
	quantity   int32
	pricePaise int64
	priced     bool
}

type stockIndex struct {
	products map[uuid.UUID]bool
	variants map[uuid.UUID]uuid.UUID // variant -> product
	weights  map[uuid.UUID]weightStock
}

func loadIndex(ctx context.Context, r StockReader, items []domain.OrderItem) (*stockIndex, error) {
	seen := make(map[uuid.UUID]bool, len(items))
	var ids []uuid.UUID
	for _, item := range items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}

	products, err := r.ListProductsByIDs(ctx, repository.UUIDs(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	options, err := r.ListProductOptions(ctx, repository.UUIDs(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to load product options: %w", err)
	}

	idx := &stockIndex{
		products: make(map[uuid.UUID]bool, len(products)),
		variants: make(map[uuid.UUID]uuid.UUID),
		weights:  make(map[uuid.UUID]weightStock),
	}
	for _, p := range products {
		idx.products[repository.FromUUID(p.ID)] = true
	}
	for _, o := range options {
		variantID := repository.FromUUID(o.VariantID)
		idx.variants[variantID] = repository.FromUUID(o.ProductID)
		if o.WeightID.Valid {
			idx.weights[repository.FromUUID(o.WeightID)] = weightStock{
				variantID:  variantID,
				quantity:   o.Quantity.Int32,
				pricePaise: o.PricePaise.Int64,
				priced:     o.PricePaise.Valid,
			}
		}
	}
	return idx, nil
}

// Check verifies that every item resolves to an existing product, variant
// and weight option priced as the catalog lists it, and that each weight
// option holds enough stock for all lines that draw on it. All problems are
// collected into a single *domain.ValidationError; nothing is reserved.
func Check(ctx context.Context, r StockReader, items []domain.OrderItem) error {
	const op = "inventory.check"

	idx, err := loadIndex(ctx, r, items)
	if err != nil {
		return domain.Internal(err, op, "failed to check stock")
	}

	verr := &domain.ValidationError{Title: "Stock availability issues", Op: op}

	// Lines for the same weight option share its stock.
	var order []uuid.UUID
	requested := make(map[uuid.UUID]int64)
	names := make(map[uuid.UUID]string)

	for _, item := range items {
		if !idx.products[item.ProductID] {
			verr.Add("Product %s not found", item.Name)
			continue
		}
		if owner, ok := idx.variants[item.VariantID]; !ok || owner != item.ProductID {
			verr.Add("Variant not found for product %s", item.Name)
			continue
		}
		w, ok := idx.weights[item.WeightID]
		if !ok || w.variantID != item.VariantID {
			verr.Add("Weight option not found for product %s", item.Name)
			continue
		}
		if w.priced && domain.ToPaise(item.Price) != w.pricePaise {
			verr.Add("Price changed for %s. Current: %s, Requested: %s",
				item.Name, domain.FromPaise(w.pricePaise).StringFixed(2), item.Price.StringFixed(2))
		}
		if _, seen := requested[item.WeightID]; !seen {
			order = append(order, item.WeightID)
			names[item.WeightID] = item.Name
		}
		requested[item.WeightID] += int64(item.Quantity)
	}

	for _, weightID := range order {
		available := int64(idx.weights[weightID].quantity)
		if requested[weightID] > available {
			verr.Add("Insufficient stock for %s. Available: %d, Requested: %d", names[weightID], available, requested[weightID])
		}
	}
	return verr.Err()
}

// Decrement removes stock for every item. It stops at the first line whose
// weight option cannot cover the requested quantity and returns a conflict
// naming that item; earlier decrements are undone only when the caller's
// transaction rolls back.
func Decrement(ctx context.Context, w StockWriter, items []domain.OrderItem) error {
	const op = "inventory.decrement"

	for _, item := range items {
		n, err := w.DecrementWeightStock(ctx, repository.DecrementWeightStockParams{
			ID:        repository.UUID(item.WeightID),
			VariantID: repository.UUID(item.VariantID),
			Quantity:  int32(item.Quantity),
		})
		if err != nil {
			return domain.Internal(fmt.Errorf("failed to decrement stock for weight %s: %w", item.WeightID, err), op, "failed to update stock")
		}
		if n == 0 {
			return ShortfallError(op, item.Name)
		}
	}
	return nil
}

// Restore puts stock back for every item. Weight options deleted since the
// order was placed are skipped and counted in the returned value.
func Restore(ctx context.Context, w StockWriter, items []domain.OrderItem) (skipped int, err error) {
	const op = "inventory.restore"

	for _, item := range items {
		n, err := w.IncrementWeightStock(ctx, repository.IncrementWeightStockParams{
			ID:        repository.UUID(item.WeightID),
			VariantID: repository.UUID(item.VariantID),
			Quantity:  int32(item.Quantity),
		})
		if err != nil {
			return skipped, domain.Internal(fmt.Errorf("failed to restore stock for weight %s: %w", item.WeightID, err), op, "failed to update stock")
		}
		if n == 0 {
			skipped++
		}
	}
	return skipped, nil
}

// ShortfallError returns the conflict reported when stock for the named item
// ran out. It matches domain.ErrInsufficientStock under errors.Is.
func ShortfallError(op, itemName string) error {
	return &domain.Error{
		Code:    domain.ECONFLICT,
		Op:      op,
		Message: fmt.Sprintf("Insufficient stock for %s", itemName),
		Err:     domain.ErrInsufficientStock,
	}
}
