package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const productColumns = `id, name, subtitle, description, category, district, images,
    rating_value, is_trending, trending_order, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (Product, error) {
	var i Product
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Subtitle,
		&i.Description,
		&i.Category,
		&i.District,
		&i.Images,
		&i.RatingValue,
		&i.IsTrending,
		&i.TrendingOrder,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getProduct = `-- name: GetProduct :one
SELECT ` + productColumns + ` FROM products WHERE id = $1
`

func (q *Queries) GetProduct(ctx context.Context, id pgtype.UUID) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, getProduct, id))
}

const listProducts = `-- name: ListProducts :many
SELECT ` + productColumns + `
FROM products
WHERE ($1::text IS NULL OR category = $1)
  AND ($2::text IS NULL OR district = $2)
  AND (NOT $3::boolean OR is_trending)
ORDER BY
    CASE WHEN $3::boolean THEN trending_order END ASC,
    created_at DESC
`

type ListProductsParams struct {
	Category     pgtype.Text
	District     pgtype.Text
	TrendingOnly bool
}

func (q *Queries) ListProducts(ctx context.Context, arg ListProductsParams) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProducts, arg.Category, arg.District, arg.TrendingOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Product{}
	for rows.Next() {
		i, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listProductsByIDs = `-- name: ListProductsByIDs :many
SELECT ` + productColumns + ` FROM products WHERE id = ANY($1::uuid[])
`

func (q *Queries) ListProductsByIDs(ctx context.Context, ids []pgtype.UUID) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProductsByIDs, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Product{}
	for rows.Next() {
		i, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listProductOptions = `-- name: ListProductOptions :many
SELECT v.product_id, v.id, v.name,
       w.id, w.value::text, w.unit, w.price_paise, w.quantity
FROM product_variants v
LEFT JOIN product_weights w ON w.variant_id = v.id
WHERE v.product_id = ANY($1::uuid[])
ORDER BY v.product_id, v.sort_order, v.id, w.sort_order, w.id
`

// ListProductOptions returns every variant/weight pair for the given
// products, ordered for grouping.
func (q *Queries) ListProductOptions(ctx context.Context, productIDs []pgtype.UUID) ([]ProductOption, error) {
	rows, err := q.db.Query(ctx, listProductOptions, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ProductOption{}
	for rows.Next() {
		var i ProductOption
		if err := rows.Scan(
			&i.ProductID,
			&i.VariantID,
			&i.VariantName,
			&i.WeightID,
			&i.WeightValue,
			&i.WeightUnit,
			&i.PricePaise,
			&i.Quantity,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getWeightQuantity = `-- name: GetWeightQuantity :one
SELECT quantity FROM product_weights WHERE id = $1
`

func (q *Queries) GetWeightQuantity(ctx context.Context, id pgtype.UUID) (int32, error) {
	var quantity int32
	err := q.db.QueryRow(ctx, getWeightQuantity, id).Scan(&quantity)
	return quantity, err
}

const decrementWeightStock = `-- name: DecrementWeightStock :execrows
UPDATE product_weights
SET quantity = quantity - $3
WHERE id = $1 AND variant_id = $2 AND quantity >= $3
`

type DecrementWeightStockParams struct {
	ID        pgtype.UUID
	VariantID pgtype.UUID
	Quantity  int32
}

// DecrementWeightStock removes Quantity units only when enough remain.
// Zero rows affected means the decrement was refused.
func (q *Queries) DecrementWeightStock(ctx context.Context, arg DecrementWeightStockParams) (int64, error) {
	result, err := q.db.Exec(ctx, decrementWeightStock, arg.ID, arg.VariantID, arg.Quantity)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const incrementWeightStock = `-- name: IncrementWeightStock :execrows
UPDATE product_weights
SET quantity = quantity + $3
WHERE id = $1 AND variant_id = $2
`

type IncrementWeightStockParams struct {
	ID        pgtype.UUID
	VariantID pgtype.UUID
	Quantity  int32
}

func (q *Queries) IncrementWeightStock(ctx context.Context, arg IncrementWeightStockParams) (int64, error) {
	result, err := q.db.Exec(ctx, incrementWeightStock, arg.ID, arg.VariantID, arg.Quantity)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
