package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const cartItemColumns = `id, user_id, product_id, variant_id, weight_id, name, price_paise,
    weight, image, quantity, created_at, updated_at`

func scanCartItem(row interface{ Scan(...any) error }) (CartItem, error) {
	var i CartItem
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.ProductID,
		&i.VariantID,
		&i.WeightID,
		&i.Name,
		&i.PricePaise,
		&i.Weight,
		&i.Image,
		&i.Quantity,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listCartItems = `-- name: ListCartItems :many
SELECT ` + cartItemColumns + ` FROM cart_items WHERE user_id = $1 ORDER BY created_at
`

func (q *Queries) ListCartItems(ctx context.Context, userID pgtype.UUID) ([]CartItem, error) {
	rows, err := q.db.Query(ctx, listCartItems, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []CartItem{}
	for rows.Next() {
		i, err := scanCartItem(rows)
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

const upsertCartItem = `-- name: UpsertCartItem :one
INSERT INTO cart_items (
    user_id, product_id, variant_id, weight_id, name, price_paise, weight, image, quantity
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9
)
ON CONFLICT (user_id, product_id, weight) DO UPDATE SET
    quantity = cart_items.quantity + EXCLUDED.quantity,
    price_paise = EXCLUDED.price_paise,
    name = EXCLUDED.name,
    image = EXCLUDED.image,
    updated_at = NOW()
RETURNING ` + cartItemColumns + `
`

type UpsertCartItemParams struct {
	UserID     pgtype.UUID
	ProductID  pgtype.UUID
	VariantID  pgtype.UUID
	WeightID   pgtype.UUID
	Name       string
	PricePaise int64
	Weight     string
	Image      string
	Quantity   int32
}

// UpsertCartItem adds a line, merging quantity into an existing line for
// the same product and weight.
func (q *Queries) UpsertCartItem(ctx context.Context, arg UpsertCartItemParams) (CartItem, error) {
	row := q.db.QueryRow(ctx, upsertCartItem,
		arg.UserID,
		arg.ProductID,
		arg.VariantID,
		arg.WeightID,
		arg.Name,
		arg.PricePaise,
		arg.Weight,
		arg.Image,
		arg.Quantity,
	)
	return scanCartItem(row)
}

const updateCartItemQuantity = `-- name: UpdateCartItemQuantity :one
UPDATE cart_items
SET quantity = $3, updated_at = NOW()
WHERE id = $1 AND user_id = $2
RETURNING ` + cartItemColumns + `
`

type UpdateCartItemQuantityParams struct {
	ID       pgtype.UUID
	UserID   pgtype.UUID
	Quantity int32
}

func (q *Queries) UpdateCartItemQuantity(ctx context.Context, arg UpdateCartItemQuantityParams) (CartItem, error) {
	return scanCartItem(q.db.QueryRow(ctx, updateCartItemQuantity, arg.ID, arg.UserID, arg.Quantity))
}

const deleteCartItem = `-- name: DeleteCartItem :execrows
DELETE FROM cart_items WHERE id = $1 AND user_id = $2
`

type DeleteCartItemParams struct {
	ID     pgtype.UUID
	UserID pgtype.UUID
}

func (q *Queries) DeleteCartItem(ctx context.Context, arg DeleteCartItemParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteCartItem, arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const clearCart = `-- name: ClearCart :execrows
DELETE FROM cart_items WHERE user_id = $1
`

func (q *Queries) ClearCart(ctx context.Context, userID pgtype.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, clearCart, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
