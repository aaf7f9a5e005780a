package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, user_id, name, phone, email, address, district, state, zip,
    subtotal_paise, delivery_fee_paise, total_paise, payment_method, payment_status,
    payment_details, status, inventory_updated, inventory_restored, gateway_order_id,
    payment_id, signature, refund_id, refunded_paise, shipped_at, delivered_at,
    cancelled_at, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Name,
		&i.Phone,
		&i.Email,
		&i.Address,
		&i.District,
		&i.State,
		&i.Zip,
		&i.SubtotalPaise,
		&i.DeliveryFeePaise,
		&i.TotalPaise,
		&i.PaymentMethod,
		&i.PaymentStatus,
		&i.PaymentDetails,
		&i.Status,
		&i.InventoryUpdated,
		&i.InventoryRestored,
		&i.GatewayOrderID,
		&i.PaymentID,
		&i.Signature,
		&i.RefundID,
		&i.RefundedPaise,
		&i.ShippedAt,
		&i.DeliveredAt,
		&i.CancelledAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func (q *Queries) queryOrders(ctx context.Context, query string, args ...any) ([]Order, error) {
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		i, err := scanOrder(rows)
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

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (
    user_id, name, phone, email, address, district, state, zip,
    subtotal_paise, delivery_fee_paise, total_paise,
    payment_method, payment_status, payment_details, status, inventory_updated
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
)
RETURNING ` + orderColumns + `
`

type CreateOrderParams struct {
	UserID           pgtype.UUID
	Name             string
	Phone            string
	Email            pgtype.Text
	Address          string
	District         string
	State            string
	Zip              string
	SubtotalPaise    int64
	DeliveryFeePaise int64
	TotalPaise       int64
	PaymentMethod    string
	PaymentStatus    string
	PaymentDetails   []byte
	Status           string
	InventoryUpdated bool
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.UserID,
		arg.Name,
		arg.Phone,
		arg.Email,
		arg.Address,
		arg.District,
		arg.State,
		arg.Zip,
		arg.SubtotalPaise,
		arg.DeliveryFeePaise,
		arg.TotalPaise,
		arg.PaymentMethod,
		arg.PaymentStatus,
		arg.PaymentDetails,
		arg.Status,
		arg.InventoryUpdated,
	)
	return scanOrder(row)
}

const createOrderItem = `-- name: CreateOrderItem :one
INSERT INTO order_items (
    order_id, position, product_id, variant_id, weight_id,
    name, price_paise, quantity, weight, image
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10
)
RETURNING id, order_id, position, product_id, variant_id, weight_id,
    name, price_paise, quantity, weight, image
`

type CreateOrderItemParams struct {
	OrderID    pgtype.UUID
	Position   int32
	ProductID  pgtype.UUID
	VariantID  pgtype.UUID
	WeightID   pgtype.UUID
	Name       string
	PricePaise int64
	Quantity   int32
	Weight     string
	Image      string
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.Position,
		arg.ProductID,
		arg.VariantID,
		arg.WeightID,
		arg.Name,
		arg.PricePaise,
		arg.Quantity,
		arg.Weight,
		arg.Image,
	)
	var i OrderItem
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.Position,
		&i.ProductID,
		&i.VariantID,
		&i.WeightID,
		&i.Name,
		&i.PricePaise,
		&i.Quantity,
		&i.Weight,
		&i.Image,
	)
	return i, err
}

const listOrderItems = `-- name: ListOrderItems :many
SELECT id, order_id, position, product_id, variant_id, weight_id,
       name, price_paise, quantity, weight, image
FROM order_items
WHERE order_id = ANY($1::uuid[])
ORDER BY order_id, position
`

// ListOrderItems returns the items of every given order, grouped by order
// and in checkout order within each group.
func (q *Queries) ListOrderItems(ctx context.Context, orderIDs []pgtype.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItems, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItem{}
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(
			&i.ID,
			&i.OrderID,
			&i.Position,
			&i.ProductID,
			&i.VariantID,
			&i.WeightID,
			&i.Name,
			&i.PricePaise,
			&i.Quantity,
			&i.Weight,
			&i.Image,
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

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + ` FROM orders WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id pgtype.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const getOrderForUpdate = `-- name: GetOrderForUpdate :one
SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE
`

// GetOrderForUpdate locks the order row until the surrounding transaction
// ends. Concurrent confirmations of the same order serialize here.
func (q *Queries) GetOrderForUpdate(ctx context.Context, id pgtype.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, id))
}

const getOrderByGatewayOrderID = `-- name: GetOrderByGatewayOrderID :one
SELECT ` + orderColumns + ` FROM orders WHERE gateway_order_id = $1
`

func (q *Queries) GetOrderByGatewayOrderID(ctx context.Context, gatewayOrderID pgtype.Text) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderByGatewayOrderID, gatewayOrderID))
}

const listOrders = `-- name: ListOrders :many
SELECT ` + orderColumns + `
FROM orders
WHERE ($1::uuid IS NULL OR user_id = $1)
  AND ($2::text IS NULL OR status = $2)
ORDER BY
    CASE WHEN $3::text = 'total' AND $4::text = 'asc' THEN total_paise END ASC,
    CASE WHEN $3::text = 'total' AND $4::text = 'desc' THEN total_paise END DESC,
    CASE WHEN $3::text = 'status' AND $4::text = 'asc' THEN status END ASC,
    CASE WHEN $3::text = 'status' AND $4::text = 'desc' THEN status END DESC,
    CASE WHEN $4::text = 'asc' THEN created_at END ASC,
    created_at DESC
LIMIT $5 OFFSET $6
`

type ListOrdersParams struct {
	UserID    pgtype.UUID
	Status    pgtype.Text
	SortBy    string
	SortOrder string
	Limit     int32
	Offset    int32
}

// ListOrders pages through orders. A NULL UserID or Status disables that
// filter. created_at is always the tiebreaker.
func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	return q.queryOrders(ctx, listOrders,
		arg.UserID,
		arg.Status,
		arg.SortBy,
		arg.SortOrder,
		arg.Limit,
		arg.Offset,
	)
}

const countOrders = `-- name: CountOrders :one
SELECT COUNT(*)
FROM orders
WHERE ($1::uuid IS NULL OR user_id = $1)
  AND ($2::text IS NULL OR status = $2)
`

type CountOrdersParams struct {
	UserID pgtype.UUID
	Status pgtype.Text
}

func (q *Queries) CountOrders(ctx context.Context, arg CountOrdersParams) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countOrders, arg.UserID, arg.Status).Scan(&count)
	return count, err
}

const setGatewayOrderID = `-- name: SetGatewayOrderID :one
UPDATE orders
SET gateway_order_id = $2, updated_at = NOW()
WHERE id = $1
RETURNING ` + orderColumns + `
`

type SetGatewayOrderIDParams struct {
	ID             pgtype.UUID
	GatewayOrderID pgtype.Text
}

func (q *Queries) SetGatewayOrderID(ctx context.Context, arg SetGatewayOrderIDParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, setGatewayOrderID, arg.ID, arg.GatewayOrderID))
}

const markOrderPaid = `-- name: MarkOrderPaid :one
UPDATE orders
SET payment_status = 'paid',
    payment_id = COALESCE($2, payment_id),
    signature = COALESCE($3, signature),
    inventory_updated = $4,
    status = CASE WHEN status = 'failed' THEN 'pending' ELSE status END,
    updated_at = NOW()
WHERE id = $1
RETURNING ` + orderColumns + `
`

type MarkOrderPaidParams struct {
	ID               pgtype.UUID
	PaymentID        pgtype.Text
	Signature        pgtype.Text
	InventoryUpdated bool
}

// MarkOrderPaid records a captured payment. A failed order goes back to
// pending so fulfilment can pick it up.
func (q *Queries) MarkOrderPaid(ctx context.Context, arg MarkOrderPaidParams) (Order, error) {
	row := q.db.QueryRow(ctx, markOrderPaid,
		arg.ID,
		arg.PaymentID,
		arg.Signature,
		arg.InventoryUpdated,
	)
	return scanOrder(row)
}

const markOrderPaymentFailed = `-- name: MarkOrderPaymentFailed :one
UPDATE orders
SET payment_status = 'failed', status = 'failed', updated_at = NOW()
WHERE id = $1
  AND payment_status NOT IN ('paid', 'refunded')
  AND status IN ('pending', 'failed')
RETURNING ` + orderColumns + `
`

// MarkOrderPaymentFailed fails an unpaid order that has not moved past
// pending. Paid orders and orders an admin has already progressed or
// cancelled are left alone and yield no rows.
func (q *Queries) MarkOrderPaymentFailed(ctx context.Context, id pgtype.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, markOrderPaymentFailed, id))
}

const updateOrderStatus = `-- name: UpdateOrderStatus :one
UPDATE orders
SET status = $2,
    shipped_at = CASE WHEN $2 = 'shipped' THEN NOW() ELSE shipped_at END,
    delivered_at = CASE WHEN $2 = 'delivered' THEN NOW() ELSE delivered_at END,
    cancelled_at = CASE WHEN $2 = 'cancelled' THEN NOW() ELSE cancelled_at END,
    updated_at = NOW()
WHERE id = $1 AND status = $3
RETURNING ` + orderColumns + `
`

type UpdateOrderStatusParams struct {
	ID         pgtype.UUID
	Status     string
	FromStatus string
}

// UpdateOrderStatus moves an order from FromStatus to Status. No rows are
// returned when the order has since left FromStatus.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status, arg.FromStatus))
}

const markInventoryRestored = `-- name: MarkInventoryRestored :exec
UPDATE orders SET inventory_restored = TRUE, updated_at = NOW() WHERE id = $1
`

func (q *Queries) MarkInventoryRestored(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, markInventoryRestored, id)
	return err
}

const recordRefund = `-- name: RecordRefund :one
UPDATE orders
SET refund_id = $2,
    refunded_paise = refunded_paise + $3,
    payment_status = CASE WHEN refunded_paise + $3 >= total_paise THEN 'refunded' ELSE payment_status END,
    updated_at = NOW()
WHERE id = $1
RETURNING ` + orderColumns + `
`

type RecordRefundParams struct {
	ID          pgtype.UUID
	RefundID    pgtype.Text
	AmountPaise int64
}

// RecordRefund adds AmountPaise to the refunded total. The payment status
// becomes refunded once the whole total has been returned.
func (q *Queries) RecordRefund(ctx context.Context, arg RecordRefundParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, recordRefund, arg.ID, arg.RefundID, arg.AmountPaise))
}

const listPendingPaymentOrders = `-- name: ListPendingPaymentOrders :many
SELECT ` + orderColumns + `
FROM orders
WHERE payment_status = 'pending'
  AND gateway_order_id IS NOT NULL
  AND status = 'pending'
  AND created_at < $1
ORDER BY created_at
LIMIT $2
`

type ListPendingPaymentOrdersParams struct {
	CreatedBefore pgtype.Timestamptz
	Limit         int32
}

// ListPendingPaymentOrders finds online orders still awaiting a payment
// signal, oldest first.
func (q *Queries) ListPendingPaymentOrders(ctx context.Context, arg ListPendingPaymentOrdersParams) ([]Order, error) {
	return q.queryOrders(ctx, listPendingPaymentOrders, arg.CreatedBefore, arg.Limit)
}
