package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const listWishlistItems = `-- name: ListWishlistItems :many
SELECT id, user_id, product_id, name, price_paise, image, created_at
FROM wishlist_items
WHERE user_id = $1
ORDER BY created_at DESC
`

func (q *Queries) ListWishlistItems(ctx context.Context, userID pgtype.UUID) ([]WishlistItem, error) {
	rows, err := q.db.Query(ctx, listWishlistItems, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []WishlistItem{}
	for rows.Next() {
		var i WishlistItem
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.ProductID,
			&i.Name,
			&i.PricePaise,
			&i.Image,
			&i.CreatedAt,
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

const createWishlistItem = `-- name: CreateWishlistItem :one
INSERT INTO wishlist_items (user_id, product_id, name, price_paise, image)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id, product_id) DO NOTHING
RETURNING id, user_id, product_id, name, price_paise, image, created_at
`

type CreateWishlistItemParams struct {
	UserID     pgtype.UUID
	ProductID  pgtype.UUID
	Name       string
	PricePaise int64
	Image      string
}

// CreateWishlistItem inserts a wishlist entry. It returns pgx.ErrNoRows
// when the product is already on the user's wishlist.
func (q *Queries) CreateWishlistItem(ctx context.Context, arg CreateWishlistItemParams) (WishlistItem, error) {
	row := q.db.QueryRow(ctx, createWishlistItem,
		arg.UserID,
		arg.ProductID,
		arg.Name,
		arg.PricePaise,
		arg.Image,
	)
	var i WishlistItem
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.ProductID,
		&i.Name,
		&i.PricePaise,
		&i.Image,
		&i.CreatedAt,
	)
	return i, err
}

const deleteWishlistItem = `-- name: DeleteWishlistItem :execrows
DELETE FROM wishlist_items WHERE user_id = $1 AND product_id = $2
`

type DeleteWishlistItemParams struct {
	UserID    pgtype.UUID
	ProductID pgtype.UUID
}

func (q *Queries) DeleteWishlistItem(ctx context.Context, arg DeleteWishlistItemParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteWishlistItem, arg.UserID, arg.ProductID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
