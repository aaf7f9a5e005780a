package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

type Querier interface {
	ClaimNextJob(ctx context.Context, arg ClaimNextJobParams) (Job, error)
	ClearCart(ctx context.Context, userID pgtype.UUID) (int64, error)
	ClearPhoneOTP(ctx context.Context, phone pgtype.Text) error
	CompleteJob(ctx context.Context, id pgtype.UUID) error
	CountActiveJobsByType(ctx context.Context, jobType string) (int64, error)
	CountOrders(ctx context.Context, arg CountOrdersParams) (int64, error)
	CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error)
	CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error)
	CreateWishlistItem(ctx context.Context, arg CreateWishlistItemParams) (WishlistItem, error)
	DecrementWeightStock(ctx context.Context, arg DecrementWeightStockParams) (int64, error)
	DeleteCartItem(ctx context.Context, arg DeleteCartItemParams) (int64, error)
	DeleteWishlistItem(ctx context.Context, arg DeleteWishlistItemParams) (int64, error)
	EnqueueJob(ctx context.Context, arg EnqueueJobParams) (Job, error)
	FailJob(ctx context.Context, arg FailJobParams) (Job, error)
	GetOrder(ctx context.Context, id pgtype.UUID) (Order, error)
	GetOrderByGatewayOrderID(ctx context.Context, gatewayOrderID pgtype.Text) (Order, error)
	GetOrderForUpdate(ctx context.Context, id pgtype.UUID) (Order, error)
	GetProduct(ctx context.Context, id pgtype.UUID) (Product, error)
	GetUserByID(ctx context.Context, id pgtype.UUID) (User, error)
	GetUserByPhone(ctx context.Context, phone pgtype.Text) (User, error)
	GetUserByUID(ctx context.Context, uid string) (User, error)
	GetWeightQuantity(ctx context.Context, id pgtype.UUID) (int32, error)
	IncrementWeightStock(ctx context.Context, arg IncrementWeightStockParams) (int64, error)
	ListCartItems(ctx context.Context, userID pgtype.UUID) ([]CartItem, error)
	ListOrderItems(ctx context.Context, orderIDs []pgtype.UUID) ([]OrderItem, error)
	ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error)
	ListPendingPaymentOrders(ctx context.Context, arg ListPendingPaymentOrdersParams) ([]Order, error)
	ListProductOptions(ctx context.Context, productIDs []pgtype.UUID) ([]ProductOption, error)
	ListProducts(ctx context.Context, arg ListProductsParams) ([]Product, error)
	ListProductsByIDs(ctx context.Context, ids []pgtype.UUID) ([]Product, error)
	ListWishlistItems(ctx context.Context, userID pgtype.UUID) ([]WishlistItem, error)
	MarkInventoryRestored(ctx context.Context, id pgtype.UUID) error
	MarkOrderPaid(ctx context.Context, arg MarkOrderPaidParams) (Order, error)
	MarkOrderPaymentFailed(ctx context.Context, id pgtype.UUID) (Order, error)
	RecordRefund(ctx context.Context, arg RecordRefundParams) (Order, error)
	SavePhoneOTP(ctx context.Context, arg SavePhoneOTPParams) (User, error)
	SetGatewayOrderID(ctx context.Context, arg SetGatewayOrderIDParams) (Order, error)
	UpdateCartItemQuantity(ctx context.Context, arg UpdateCartItemQuantityParams) (CartItem, error)
	UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error)
	UpsertCartItem(ctx context.Context, arg UpsertCartItemParams) (CartItem, error)
	UpsertUser(ctx context.Context, arg UpsertUserParams) (User, error)
}

var _ Querier = (*Queries)(nil)
