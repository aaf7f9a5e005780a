package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/haat/internal/billing"
	"github.com/dukerupert/haat/internal/domain"
	"github.com/dukerupert/haat/internal/jobs"
	"github.com/dukerupert/haat/internal/repository"
)

func TestCreateOrder_Validation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(r *CreateOrderRequest)
		wantCode    string
		wantMessage string
	}{
		{
			name:        "missing name",
			mutate:      func(r *CreateOrderRequest) { r.Name = "" },
			wantCode:    domain.EINVALID,
			wantMessage: "Name is required",
		},
		{
			name:        "bad phone",
			mutate:      func(r *CreateOrderRequest) { r.Phone = "12345" },
			wantCode:    domain.EINVALID,
			wantMessage: "Phone number must be 10 digits starting with 6-9",
		},
		{
			name:        "bad postal code",
			mutate:      func(r *CreateOrderRequest) { r.Zip = "4110" },
			wantCode:    domain.EINVALID,
			wantMessage: "Postal code must be 6 digits",
		},
		{
			name:        "bad email",
			mutate:      func(r *CreateOrderRequest) { r.Email = "not-an-email" },
			wantCode:    domain.EINVALID,
			wantMessage: "Invalid email format",
		},
		{
			name:        "no items",
			mutate:      func(r *CreateOrderRequest) { r.Items = nil },
			wantCode:    domain.EINVALID,
			wantMessage: "At least one item is required",
		},
		{
			name:        "zero quantity",
			mutate:      func(r *CreateOrderRequest) { r.Items[0].Quantity = 0 },
			wantCode:    domain.EINVALID,
			wantMessage: "Item 1: quantity must be greater than 0",
		},
		{
			name:        "unknown payment method",
			mutate:      func(r *CreateOrderRequest) { r.PaymentMethod = "barter" },
			wantCode:    domain.EINVALID,
			wantMessage: "Invalid payment method",
		},
		{
			name:        "card without last four",
			mutate:      func(r *CreateOrderRequest) { r.PaymentMethod = "card" },
			wantCode:    domain.EINVALID,
			wantMessage: "Missing required payment fields",
		},
		{
			name: "malformed upi id",
			mutate: func(r *CreateOrderRequest) {
				r.PaymentMethod = "upi"
				r.PaymentDetails = map[string]string{"upiId": "asha"}
			},
			wantCode:    domain.EINVALID,
			wantMessage: "Invalid payment details for upi payment method",
		},
		{
			name:        "total mismatch",
			mutate:      func(r *CreateOrderRequest) { r.TotalAmount = decimal.NewFromInt(221) },
			wantCode:    domain.EINVALID,
			wantMessage: "Total amount mismatch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderFixture(t, 10)
			req := f.request(2, "cod")
			tt.mutate(&req)

			result, err := f.svc.CreateOrder(context.Background(), f.customer, req)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.Equal(t, tt.wantCode, domain.ErrorCode(err))
			assert.Equal(t, tt.wantMessage, domain.ErrorMessage(err))
			assert.Equal(t, 0, f.store.OrderCount())
			assert.Equal(t, int32(10), f.store.Quantity(f.weightID))
		})
	}
}

func TestCreateOrder_TotalMismatchDetails(t *testing.T) {
	f := newOrderFixture(t, 10)
	req := f.request(2, "cod")
	req.TotalAmount = decimal.NewFromInt(221)

	_, err := f.svc.CreateOrder(context.Background(), f.customer, req)
	require.Error(t, err)

	details, ok := domain.ErrorDetails(err).(map[string]any)
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(220).Equal(details["calculatedTotal"].(decimal.Decimal)))
	assert.True(t, decimal.NewFromInt(221).Equal(details["receivedTotal"].(decimal.Decimal)))
}

func TestCreateOrder_ToleratesRoundingWithinOnePaisa(t *testing.T) {
	f := newOrderFixture(t, 10)
	req := f.request(2, "cod")
	req.TotalAmount = decimal.RequireFromString("220.009")

	result, err := f.svc.CreateOrder(context.Background(), f.customer, req)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(220).Equal(result.Order.Total))
}

func TestCreateOrder_MissingPaymentFieldDetails(t *testing.T) {
	f := newOrderFixture(t, 10)
	req := f.request(1, "netbanking")

	_, err := f.svc.CreateOrder(context.Background(), f.customer, req)
	require.Error(t, err)
	assert.Equal(t, []string{"bank"}, domain.ErrorDetails(err))
}

func TestCreateOrder_RequiresUser(t *testing.T) {
	f := newOrderFixture(t, 10)

	_, err := f.svc.CreateOrder(context.Background(), nil, f.request(1, "cod"))
	assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	f := newOrderFixture(t, 3)

	_, err := f.svc.CreateOrder(context.Background(), f.customer, f.request(5, "cod"))
	require.Error(t, err)
	assert.True(t, domain.IsValidationError(err))
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	assert.Equal(t, "Insufficient stock for Kashmiri Chilli. Available: 3, Requested: 5", domain.ErrorMessage(err))
	assert.Equal(t, 0, f.store.OrderCount())
	assert.Equal(t, int32(3), f.store.Quantity(f.weightID))
}

func TestCreateOrder_RepeatedLinesShareStock(t *testing.T) {
	for _, method := range []string{"cod", "razorpay"} {
		t.Run(method, func(t *testing.T) {
			f := newOrderFixture(t, 3)
			req := f.request(2, method)
			req.Items = append(req.Items, req.Items[0])
			req.TotalAmount = decimal.NewFromInt(420)

			_, err := f.svc.CreateOrder(context.Background(), f.customer, req)
			require.Error(t, err)
			assert.True(t, domain.IsValidationError(err))
			assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
			assert.Equal(t, "Insufficient stock for Kashmiri Chilli. Available: 3, Requested: 4", domain.ErrorMessage(err))
			assert.Equal(t, 0, f.store.OrderCount())
			assert.Empty(t, f.provider.Calls())
			assert.Equal(t, int32(3), f.store.Quantity(f.weightID))
		})
	}
}

func TestCreateOrder_RejectsClientPrice(t *testing.T) {
	f := newOrderFixture(t, 10)
	req := f.request(2, "razorpay")
	req.Items[0].Price = decimal.NewFromInt(1)
	req.TotalAmount = decimal.NewFromInt(22)

	_, err := f.svc.CreateOrder(context.Background(), f.customer, req)
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	assert.Equal(t, "Price changed for Kashmiri Chilli. Current: 100.00, Requested: 1.00", domain.ErrorMessage(err))
	assert.Equal(t, 0, f.store.OrderCount())
	assert.Empty(t, f.provider.Calls())
}

func TestCreateOrder_UnknownWeightOption(t *testing.T) {
	f := newOrderFixture(t, 3)
	req := f.request(1, "cod")
	req.Items[0].WeightID = uuid.New()

	_, err := f.svc.CreateOrder(context.Background(), f.customer, req)
	require.Error(t, err)
	assert.Equal(t, "Weight option not found for product Kashmiri Chilli", domain.ErrorMessage(err))
}

func TestCreateOrder_COD(t *testing.T) {
	f := newOrderFixture(t, 10)

	result, err := f.svc.CreateOrder(context.Background(), f.customer, f.request(2, "cod"))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Nil(t, result.Payment)

	order := result.Order
	assert.Equal(t, f.customer.ID, order.UserID)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, domain.PaymentStatusCOD, order.PaymentStatus)
	assert.True(t, order.InventoryUpdated)
	assert.True(t, decimal.NewFromInt(200).Equal(order.Subtotal))
	assert.True(t, decimal.NewFromInt(220).Equal(order.Total))
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)

	assert.Equal(t, int32(8), f.store.Quantity(f.weightID))
	assert.Equal(t, []string{domain.EventOrderCreated}, f.events.Types())
	assert.Equal(t, []string{jobs.JobTypeOrderConfirmation}, f.jobTypes())
	assert.Empty(t, f.provider.Calls())
}

func TestCreateOrder_CODDecrementRace(t *testing.T) {
	f := newOrderFixture(t, 10)
	// Stock vanished between the check and the conditional update.
	f.store.DecrementWeightStockFunc = func(ctx context.Context, arg repository.DecrementWeightStockParams) (int64, error) {
		return 0, nil
	}

	_, err := f.svc.CreateOrder(context.Background(), f.customer, f.request(2, "cod"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
	assert.Equal(t, 0, f.store.OrderCount(), "order insert is rolled back")
	assert.Empty(t, f.store.Jobs())
}

func TestCreateOrder_ItemInsertFailureRollsBack(t *testing.T) {
	f := newOrderFixture(t, 10)
	f.store.CreateOrderItemFunc = func(ctx context.Context, arg repository.CreateOrderItemParams) (repository.OrderItem, error) {
		return repository.OrderItem{}, errors.New("connection reset")
	}

	_, err := f.svc.CreateOrder(context.Background(), f.customer, f.request(2, "cod"))
	require.Error(t, err)
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
	assert.Equal(t, 0, f.store.OrderCount())
	assert.Equal(t, int32(10), f.store.Quantity(f.weightID))
}

func TestCreateOrder_Online(t *testing.T) {
	f := newOrderFixture(t, 10)

	result, err := f.svc.CreateOrder(context.Background(), f.customer, f.request(2, "razorpay_upi"))
	require.NoError(t, err)
	require.NotNil(t, result.Payment)

	assert.Equal(t, "mock", result.Payment.Provider)
	assert.Equal(t, int64(22000), result.Payment.AmountPaise)
	assert.Equal(t, CurrencyINR, result.Payment.Currency)
	assert.Equal(t, "rzp_test_mock", result.Payment.KeyID)
	assert.NotEmpty(t, result.Payment.GatewayOrderID)

	order := result.Order
	assert.Equal(t, domain.PaymentStatusPending, order.PaymentStatus)
	assert.False(t, order.InventoryUpdated)
	assert.Equal(t, result.Payment.GatewayOrderID, order.GatewayOrderID)

	stored, ok := f.store.Order(order.ID)
	require.True(t, ok)
	assert.Equal(t, result.Payment.GatewayOrderID, stored.GatewayOrderID.String)

	// Stock is only taken once payment is confirmed.
	assert.Equal(t, int32(10), f.store.Quantity(f.weightID))
	assert.Equal(t, []string{jobs.JobTypeOrderConfirmation}, f.jobTypes())
}

func TestCreateOrder_GatewayFailureMarksOrderFailed(t *testing.T) {
	f := newOrderFixture(t, 10)

	var receipt string
	f.provider.CreateOrderFunc = func(ctx context.Context, params billing.CreateOrderParams) (*billing.GatewayOrder, error) {
		receipt = params.Receipt
		return nil, errors.New("gateway timeout")
	}

	_, err := f.svc.CreateOrder(context.Background(), f.customer, f.request(2, "razorpay"))
	require.Error(t, err)
	assert.Equal(t, domain.EGATEWAY, domain.ErrorCode(err))
	assert.Equal(t, "Failed to create payment order", domain.ErrorMessage(err))

	stored, ok := f.store.Order(uuid.MustParse(receipt))
	require.True(t, ok)
	assert.Equal(t, "failed", stored.Status)
	assert.Equal(t, "failed", stored.PaymentStatus)
	assert.False(t, stored.GatewayOrderID.Valid)
	assert.Empty(t, f.events.Types())
	assert.Empty(t, f.store.Jobs())
}

func TestCreateOrder_NoEmailWithoutAddress(t *testing.T) {
	f := newOrderFixture(t, 10)
	req := f.request(1, "cod")
	req.Email = ""

	_, err := f.svc.CreateOrder(context.Background(), f.customer, req)
	require.NoError(t, err)
	assert.Empty(t, f.store.Jobs())
}

func TestCreateOrder_LegacyAddressFields(t *testing.T) {
	f := newOrderFixture(t, 10)
	req := f.request(1, "cod")
	req.District, req.Zip = "", ""
	req.City, req.PostalCode = "Nashik", "422001"

	result, err := f.svc.CreateOrder(context.Background(), f.customer, req)
	require.NoError(t, err)
	assert.Equal(t, "Nashik", result.Order.District)
	assert.Equal(t, "422001", result.Order.Zip)
}

func TestListOrders(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, 50)
	for i := 0; i < 3; i++ {
		_, err := f.svc.CreateOrder(ctx, f.customer, f.request(1, "cod"))
		require.NoError(t, err)
	}
	other := f.store.AddUser(repository.User{Name: "Ravi"})
	otherUser := &domain.User{ID: repository.FromUUID(other.ID)}
	_, err := f.svc.CreateOrder(ctx, otherUser, f.request(1, "cod"))
	require.NoError(t, err)

	t.Run("own orders paginate", func(t *testing.T) {
		page, err := f.svc.ListOrders(ctx, f.customer, ListOrdersParams{Page: 1, Limit: 2})
		require.NoError(t, err)
		assert.Len(t, page.Orders, 2)
		assert.Equal(t, int64(3), page.Pagination.TotalOrders)
		assert.Equal(t, 2, page.Pagination.TotalPages)
		assert.Equal(t, 1, page.Pagination.CurrentPage)
		for _, o := range page.Orders {
			assert.Equal(t, f.customer.ID, o.UserID)
			assert.Len(t, o.Items, 1)
		}
		assert.True(t, page.Orders[0].CreatedAt.After(page.Orders[1].CreatedAt), "newest first")
	})

	t.Run("defaults and clamps limit", func(t *testing.T) {
		page, err := f.svc.ListOrders(ctx, f.customer, ListOrdersParams{Limit: 1000})
		require.NoError(t, err)
		assert.Equal(t, MaxOrderPageSize, page.Pagination.Limit)
		assert.Equal(t, 1, page.Pagination.CurrentPage)
	})

	t.Run("admin lists all", func(t *testing.T) {
		page, err := f.svc.ListOrders(ctx, f.admin, ListOrdersParams{All: true})
		require.NoError(t, err)
		assert.Equal(t, int64(4), page.Pagination.TotalOrders)
	})

	t.Run("admin filters by user", func(t *testing.T) {
		page, err := f.svc.ListOrders(ctx, f.admin, ListOrdersParams{UserID: otherUser.ID.String()})
		require.NoError(t, err)
		assert.Equal(t, int64(1), page.Pagination.TotalOrders)
	})

	t.Run("customer cannot list all", func(t *testing.T) {
		_, err := f.svc.ListOrders(ctx, f.customer, ListOrdersParams{All: true})
		assert.True(t, errors.Is(err, domain.ErrAllOrdersForbidden))
		assert.Equal(t, domain.EFORBIDDEN, domain.ErrorCode(err))
	})

	t.Run("status filter", func(t *testing.T) {
		page, err := f.svc.ListOrders(ctx, f.customer, ListOrdersParams{Status: "shipped"})
		require.NoError(t, err)
		assert.Empty(t, page.Orders)
		assert.Equal(t, int64(0), page.Pagination.TotalOrders)
	})

	t.Run("rejects bad query", func(t *testing.T) {
		_, err := f.svc.ListOrders(ctx, f.customer, ListOrdersParams{Status: "lost"})
		assert.True(t, errors.Is(err, domain.ErrInvalidStatus))

		_, err = f.svc.ListOrders(ctx, f.customer, ListOrdersParams{SortBy: "name"})
		assert.Equal(t, "Invalid sortBy; use createdAt, total or status", domain.ErrorMessage(err))

		_, err = f.svc.ListOrders(ctx, f.customer, ListOrdersParams{SortOrder: "sideways"})
		assert.Equal(t, "Invalid sortOrder; use asc or desc", domain.ErrorMessage(err))
	})
}

func TestGetOrder(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, 10)
	result, err := f.svc.CreateOrder(ctx, f.customer, f.request(1, "cod"))
	require.NoError(t, err)
	orderID := result.Order.ID.String()

	order, err := f.svc.GetOrder(ctx, f.customer, orderID)
	require.NoError(t, err)
	assert.Equal(t, result.Order.ID, order.ID)
	assert.Len(t, order.Items, 1)

	_, err = f.svc.GetOrder(ctx, f.admin, orderID)
	assert.NoError(t, err)

	stranger := &domain.User{ID: uuid.New()}
	_, err = f.svc.GetOrder(ctx, stranger, orderID)
	assert.True(t, errors.Is(err, domain.ErrOrderNotFound))

	_, err = f.svc.GetOrder(ctx, f.customer, "not-a-uuid")
	assert.True(t, errors.Is(err, domain.ErrInvalidOrderID))

	_, err = f.svc.GetOrder(ctx, f.customer, uuid.NewString())
	assert.True(t, errors.Is(err, domain.ErrOrderNotFound))
}

func TestUpdateStatus_Lifecycle(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, 10)
	result, err := f.svc.CreateOrder(ctx, f.customer, f.request(1, "cod"))
	require.NoError(t, err)
	orderID := result.Order.ID.String()

	for _, next := range []string{"processing", "shipped", "delivered"} {
		order, err := f.svc.UpdateStatus(ctx, f.admin, orderID, next)
		require.NoError(t, err, next)
		assert.Equal(t, domain.OrderStatus(next), order.Status)
	}

	stored, _ := f.store.Order(result.Order.ID)
	assert.True(t, stored.ShippedAt.Valid)
	assert.True(t, stored.DeliveredAt.Valid)
	assert.Contains(t, f.jobTypes(), jobs.JobTypeShippingConfirmation)
	assert.Equal(t, []string{
		domain.EventOrderCreated,
		domain.EventOrderStatusChanged,
		domain.EventOrderStatusChanged,
		domain.EventOrderStatusChanged,
	}, f.events.Types())

	_, err = f.svc.UpdateStatus(ctx, f.admin, orderID, "cancelled")
	assert.Equal(t, "Invalid status transition from delivered to cancelled", domain.ErrorMessage(err))
}

func TestUpdateStatus_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, 10)
	result, err := f.svc.CreateOrder(ctx, f.customer, f.request(1, "cod"))
	require.NoError(t, err)
	orderID := result.Order.ID.String()

	_, err = f.svc.UpdateStatus(ctx, f.customer, orderID, "processing")
	assert.Equal(t, domain.EFORBIDDEN, domain.ErrorCode(err))
	assert.Equal(t, "Access denied: Admin privileges required", domain.ErrorMessage(err))

	_, err = f.svc.UpdateStatus(ctx, f.admin, orderID, "teleported")
	assert.True(t, errors.Is(err, domain.ErrInvalidStatus))

	_, err = f.svc.UpdateStatus(ctx, f.admin, orderID, "delivered")
	assert.Equal(t, "Invalid status transition from pending to delivered", domain.ErrorMessage(err))

	_, err = f.svc.UpdateStatus(ctx, f.admin, uuid.NewString(), "processing")
	assert.True(t, errors.Is(err, domain.ErrOrderNotFound))

	stored, _ := f.store.Order(result.Order.ID)
	assert.Equal(t, "pending", stored.Status)
}

func TestUpdateStatus_SameStatusIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, 10)
	result, err := f.svc.CreateOrder(ctx, f.customer, f.request(1, "cod"))
	require.NoError(t, err)

	order, err := f.svc.UpdateStatus(ctx, f.admin, result.Order.ID.String(), "pending")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, []string{domain.EventOrderCreated}, f.events.Types())
}

func TestUpdateStatus_CancelRestoresStock(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, 10)
	result, err := f.svc.CreateOrder(ctx, f.customer, f.request(3, "cod"))
	require.NoError(t, err)
	require.Equal(t, int32(7), f.store.Quantity(f.weightID))

	order, err := f.svc.UpdateStatus(ctx, f.admin, result.Order.ID.String(), "cancelled")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, order.Status)
	assert.True(t, order.InventoryRestored)
	assert.Equal(t, int32(10), f.store.Quantity(f.weightID))

	// Cancelling again changes nothing.
	_, err = f.svc.UpdateStatus(ctx, f.admin, result.Order.ID.String(), "cancelled")
	require.NoError(t, err)
	assert.Equal(t, int32(10), f.store.Quantity(f.weightID))
}

func TestUpdateStatus_FailRestoresCODStock(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, 10)
	result, err := f.svc.CreateOrder(ctx, f.customer, f.request(4, "cod"))
	require.NoError(t, err)
	require.Equal(t, int32(6), f.store.Quantity(f.weightID))

	order, err := f.svc.UpdateStatus(ctx, f.admin, result.Order.ID.String(), "failed")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusFailed, order.Status)
	assert.True(t, order.InventoryRestored)
	assert.Equal(t, int32(10), f.store.Quantity(f.weightID))

	stored, _ := f.store.Order(result.Order.ID)
	assert.True(t, stored.InventoryRestored)
}

func TestUpdateStatus_CancelUnpaidOnlineOrderLeavesStock(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, 10)
	order := f.placeOnline(t, 2)

	cancelled, err := f.svc.UpdateStatus(ctx, f.admin, order.ID.String(), "cancelled")
	require.NoError(t, err)
	assert.False(t, cancelled.InventoryRestored)
	assert.Equal(t, int32(10), f.store.Quantity(f.weightID))
}

func TestUpdateStatus_RestoreSkipsDeletedWeight(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, 10)
	row := f.store.PutOrder(repository.Order{
		UserID:           repository.UUID(f.customer.ID),
		TotalPaise:       12000,
		PaymentMethod:    "cod",
		PaymentStatus:    "cod",
		Status:           "pending",
		InventoryUpdated: true,
	}, repository.OrderItem{
		ProductID: repository.UUID(f.productID),
		VariantID: repository.UUID(f.variantID),
		WeightID:  repository.UUID(uuid.New()),
		Name:      "Discontinued",
		Quantity:  1,
	})

	order, err := f.svc.UpdateStatus(ctx, f.admin, repository.FromUUID(row.ID).String(), "cancelled")
	require.NoError(t, err)
	assert.True(t, order.InventoryRestored)
	assert.Equal(t, int32(10), f.store.Quantity(f.weightID))
}
