package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/haat/internal/billing"
	"github.com/dukerupert/haat/internal/domain"
	"github.com/dukerupert/haat/internal/inventory"
	"github.com/dukerupert/haat/internal/jobs"
	"github.com/dukerupert/haat/internal/repository"
	"github.com/dukerupert/haat/internal/telemetry"
)

// OrderService provides business logic for order placement, payment
// confirmation and fulfillment.
type OrderService interface {
	// CreateOrder validates a checkout, checks stock and persists the order.
	// COD orders take stock immediately; online orders are registered with
	// the payment gateway and take stock once payment is confirmed.
	CreateOrder(ctx context.Context, user *domain.User, req CreateOrderRequest) (*CreateOrderResult, error)

	// ListOrders pages through the caller's orders, or every order for an
	// admin asking for all of them.
	ListOrders(ctx context.Context, user *domain.User, params ListOrdersParams) (*domain.OrderPage, error)

	// GetOrder returns an order visible to the caller.
	GetOrder(ctx context.Context, user *domain.User, orderID string) (*domain.Order, error)

	// UpdateStatus moves an order along the fulfillment state machine (admin).
	UpdateStatus(ctx context.Context, user *domain.User, orderID string, status string) (*domain.Order, error)

	// CompletePayment verifies a checkout callback and confirms the payment.
	CompletePayment(ctx context.Context, user *domain.User, orderID string, req CompletePaymentRequest) (*PaymentConfirmation, error)

	// ConfirmPayment marks the order paid and takes stock exactly once.
	ConfirmPayment(ctx context.Context, gatewayOrderID, paymentID, signature string) (*PaymentConfirmation, error)

	// HandlePaymentEvent applies an authenticated webhook event.
	HandlePaymentEvent(ctx context.Context, event *billing.WebhookEvent) (*PaymentEventResult, error)

	// RefundOrder refunds all or part of a captured payment (admin).
	RefundOrder(ctx context.Context, user *domain.User, orderID string, req RefundRequest) (*RefundResult, error)

	// FetchPayment returns a payment as the gateway reports it (admin).
	FetchPayment(ctx context.Context, paymentID string) (*PaymentInfo, error)

	// ReconcilePendingPayments settles online orders whose payment signal
	// never arrived.
	ReconcilePendingPayments(ctx context.Context, olderThan, expireAfter time.Duration) (*domain.ReconcileSummary, error)
}

// Order listing bounds.
const (
	DefaultOrderPageSize = 20
	MaxOrderPageSize     = 100
)

// CurrencyINR is the only currency orders are taken in.
const CurrencyINR = "INR"

// CreateOrderItem is a checkout line as sent by the client.
type CreateOrderItem struct {
	ProductID uuid.UUID       `json:"productId" validate:"required"`
	VariantID uuid.UUID       `json:"variantId" validate:"required"`
	WeightID  uuid.UUID       `json:"weightId" validate:"required"`
	Name      string          `json:"name" validate:"required"`
	Price     decimal.Decimal `json:"price" validate:"gt=0"`
	Quantity  int             `json:"quantity" validate:"gt=0"`
	Weight    string          `json:"weight"`
	Image     string          `json:"image"`
}

// CreateOrderRequest is the checkout body.
type CreateOrderRequest struct {
	Name     string `json:"name" validate:"required"`
	Phone    string `json:"phone" validate:"required,in_phone"`
	Email    string `json:"email" validate:"omitempty,email"`
	Address  string `json:"address" validate:"required"`
	District string `json:"district" validate:"required"`
	State    string `json:"state" validate:"required"`
	Zip      string `json:"zip" validate:"required,in_postal"`

	// City and PostalCode are accepted from older clients.
	City       string `json:"city,omitempty" validate:"-"`
	PostalCode string `json:"postalCode,omitempty" validate:"-"`

	Items          []CreateOrderItem `json:"items" validate:"min=1,dive"`
	DeliveryFee    decimal.Decimal   `json:"deliveryFee" validate:"gte=0"`
	TotalAmount    decimal.Decimal   `json:"totalAmount" validate:"gt=0"`
	PaymentMethod  string            `json:"paymentMethod" validate:"required"`
	PaymentDetails map[string]string `json:"paymentDetails,omitempty"`
}

// normalize folds legacy field aliases into their current names.
func (r *CreateOrderRequest) normalize() {
	if r.District == "" {
		r.District = r.City
	}
	if r.Zip == "" {
		r.Zip = r.PostalCode
	}
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Email = strings.TrimSpace(r.Email)
}

// CheckoutPayment is what the client needs to open the gateway checkout.
type CheckoutPayment struct {
	Provider       string `json:"provider"`
	GatewayOrderID string `json:"gatewayOrderId"`
	AmountPaise    int64  `json:"amount"`
	Currency       string `json:"currency"`
	KeyID          string `json:"keyId"`
	ClientSecret   string `json:"clientSecret,omitempty"`
}

// CreateOrderResult is the placed order, plus checkout details for online orders.
type CreateOrderResult struct {
	Order   *domain.Order    `json:"order"`
	Payment *CheckoutPayment `json:"payment,omitempty"`
}

// ListOrdersParams holds the order listing query.
type ListOrdersParams struct {
	Page      int
	Limit     int
	Status    string
	All       bool
	UserID    string
	SortBy    string
	SortOrder string
}

var sortColumns = map[string]string{
	"":          "created_at",
	"createdAt": "created_at",
	"total":     "total",
	"status":    "status",
}

type orderService struct {
	store    repository.Store
	provider billing.Provider
	events   domain.EventPublisher
	metrics  *telemetry.BusinessMetrics
	logger   *slog.Logger
}

// NewOrderService creates a new OrderService instance.
// events and metrics may be nil.
func NewOrderService(
	store repository.Store,
	provider billing.Provider,
	events domain.EventPublisher,
	metrics *telemetry.BusinessMetrics,
	logger *slog.Logger,
) OrderService {
	return &orderService{
		store:    store,
		provider: provider,
		events:   events,
		metrics:  metrics,
		logger:   logger,
	}
}

// =============================================================================
// Create
// =============================================================================

func (s *orderService) CreateOrder(ctx context.Context, user *domain.User, req CreateOrderRequest) (*CreateOrderResult, error) {
	const op = "order.create"

	if user == nil {
		return nil, domain.Unauthorized(op, "Unauthorized: No token provided")
	}

	req.normalize()
	if err := validateStruct(op, &req); err != nil {
		return nil, err
	}

	method := domain.PaymentMethod(req.PaymentMethod)
	if err := validatePaymentDetails(op, method, req.PaymentDetails); err != nil {
		return nil, err
	}

	items := make([]domain.OrderItem, len(req.Items))
	subtotal := decimal.Zero
	for i, it := range req.Items {
		items[i] = domain.OrderItem{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			WeightID:  it.WeightID,
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
			Weight:    it.Weight,
			Image:     it.Image,
		}
		subtotal = subtotal.Add(domain.LineTotal(it.Price, it.Quantity))
	}

	calculated := subtotal.Add(req.DeliveryFee)
	if !domain.WithinTolerance(calculated, req.TotalAmount) {
		return nil, domain.InvalidWithDetails(op, "Total amount mismatch", map[string]any{
			"calculatedTotal": calculated,
			"receivedTotal":   req.TotalAmount,
			"subtotal":        subtotal,
			"deliveryFee":     req.DeliveryFee,
		})
	}

	if err := inventory.Check(ctx, s.store, items); err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			verr.Op = op
		}
		return nil, err
	}

	details, err := json.Marshal(req.PaymentDetails)
	if err != nil || req.PaymentDetails == nil {
		details = []byte("{}")
	}

	params := repository.CreateOrderParams{
		UserID:           repository.UUID(user.ID),
		Name:             req.Name,
		Phone:            req.Phone,
		Email:            repository.Text(req.Email),
		Address:          req.Address,
		District:         req.District,
		State:            req.State,
		Zip:              req.Zip,
		SubtotalPaise:    domain.ToPaise(subtotal),
		DeliveryFeePaise: domain.ToPaise(req.DeliveryFee),
		TotalPaise:       domain.ToPaise(calculated),
		PaymentMethod:    string(method),
		PaymentDetails:   details,
		Status:           string(domain.OrderStatusPending),
	}

	var result *CreateOrderResult
	if method.IsOnline() {
		result, err = s.createOnlineOrder(ctx, op, user, params, items)
	} else {
		result, err = s.createCODOrder(ctx, op, params, items)
	}
	if err != nil {
		return nil, err
	}

	order := result.Order
	s.metrics.RecordOrderCreated(string(order.PaymentMethod), order.Total.InexactFloat64(), len(order.Items))
	s.publish(ctx, domain.EventOrderCreated, order)
	s.enqueueConfirmationEmail(ctx, order)

	s.logger.Info("order created",
		"order_id", order.ID,
		"user_id", user.ID,
		"payment_method", order.PaymentMethod,
		"total", order.Total.StringFixed(2),
		"items", len(order.Items),
	)
	return result, nil
}

// createCODOrder persists the order and takes stock in one transaction.
func (s *orderService) createCODOrder(ctx context.Context, op string, params repository.CreateOrderParams, items []domain.OrderItem) (*CreateOrderResult, error) {
	params.PaymentStatus = string(domain.PaymentStatusCOD)
	params.InventoryUpdated = true

	var order *domain.Order
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		var err error
		order, err = insertOrder(ctx, q, params, items)
		if err != nil {
			return err
		}
		return inventory.Decrement(ctx, q, items)
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			s.metrics.RecordStockShortfall("checkout")
			return nil, err
		}
		return nil, wrapInternal(err, op, "failed to create order")
	}
	return &CreateOrderResult{Order: order}, nil
}

// createOnlineOrder persists a pending order, then registers it with the
// gateway. A gateway failure leaves the order failed rather than without a
// gateway id.
func (s *orderService) createOnlineOrder(ctx context.Context, op string, user *domain.User, params repository.CreateOrderParams, items []domain.OrderItem) (*CreateOrderResult, error) {
	params.PaymentStatus = string(domain.PaymentStatusPending)
	params.InventoryUpdated = false

	var order *domain.Order
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		var err error
		order, err = insertOrder(ctx, q, params, items)
		return err
	})
	if err != nil {
		return nil, wrapInternal(err, op, "failed to create order")
	}

	start := time.Now()
	gatewayOrder, err := s.provider.CreateOrder(ctx, billing.CreateOrderParams{
		AmountPaise: params.TotalPaise,
		Currency:    CurrencyINR,
		Receipt:     order.ID.String(),
		Notes: map[string]string{
			"order_id": order.ID.String(),
			"user_id":  user.ID.String(),
		},
	})
	s.metrics.ObserveGatewayCall(s.provider.Name(), "create_order", time.Since(start).Seconds())
	if err != nil {
		s.logger.Error("failed to create gateway order",
			"order_id", order.ID,
			"provider", s.provider.Name(),
			"error", err,
		)
		if _, ferr := s.store.MarkOrderPaymentFailed(ctx, repository.UUID(order.ID)); ferr != nil {
			s.logger.Error("failed to mark order failed after gateway error", "order_id", order.ID, "error", ferr)
		}
		s.metrics.RecordPaymentFailed("gateway_create")
		return nil, domain.Gateway(err, op, "Failed to create payment order")
	}

	row, err := s.store.SetGatewayOrderID(ctx, repository.SetGatewayOrderIDParams{
		ID:             repository.UUID(order.ID),
		GatewayOrderID: repository.Text(gatewayOrder.ID),
	})
	if err != nil {
		telemetry.CaptureErrorWithOrder(err, order.ID.String(), map[string]interface{}{
			"gateway_order_id": gatewayOrder.ID,
		})
		return nil, wrapInternal(err, op, "failed to attach gateway order")
	}
	order.GatewayOrderID = row.GatewayOrderID.String
	order.UpdatedAt = row.UpdatedAt.Time

	return &CreateOrderResult{
		Order: order,
		Payment: &CheckoutPayment{
			Provider:       s.provider.Name(),
			GatewayOrderID: gatewayOrder.ID,
			AmountPaise:    gatewayOrder.AmountPaise,
			Currency:       gatewayOrder.Currency,
			KeyID:          s.provider.PublicKey(),
			ClientSecret:   gatewayOrder.ClientSecret,
		},
	}, nil
}

func insertOrder(ctx context.Context, q repository.Querier, params repository.CreateOrderParams, items []domain.OrderItem) (*domain.Order, error) {
	row, err := q.CreateOrder(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}

	rows := make([]repository.OrderItem, 0, len(items))
	for i, item := range items {
		itemRow, err := q.CreateOrderItem(ctx, repository.CreateOrderItemParams{
			OrderID:    row.ID,
			Position:   int32(i),
			ProductID:  repository.UUID(item.ProductID),
			VariantID:  repository.UUID(item.VariantID),
			WeightID:   repository.UUID(item.WeightID),
			Name:       item.Name,
			PricePaise: domain.ToPaise(item.Price),
			Quantity:   int32(item.Quantity),
			Weight:     item.Weight,
			Image:      item.Image,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to insert order item %d: %w", i+1, err)
		}
		rows = append(rows, itemRow)
	}
	return orderFromRow(row, rows), nil
}

// validatePaymentDetails checks the fields each direct payment method needs.
func validatePaymentDetails(op string, method domain.PaymentMethod, details map[string]string) error {
	if !method.IsValid() {
		return domain.ErrInvalidPaymentMethod.WithOp(op)
	}

	var required string
	var valid func(string) bool
	switch method {
	case domain.PaymentMethodCard:
		required = "cardLast4"
		valid = func(v string) bool { return len(v) == 4 && strings.Trim(v, "0123456789") == "" }
	case domain.PaymentMethodUPI:
		required = "upiId"
		valid = func(v string) bool {
			at := strings.Index(v, "@")
			return at > 0 && at < len(v)-1
		}
	case domain.PaymentMethodNetbanking:
		required = "bank"
		valid = func(v string) bool { return strings.TrimSpace(v) != "" }
	default:
		return nil
	}

	value, ok := details[required]
	if !ok || value == "" {
		return domain.InvalidWithDetails(op, "Missing required payment fields", []string{required})
	}
	if !valid(value) {
		return domain.Invalid(op, fmt.Sprintf("Invalid payment details for %s payment method", method))
	}
	return nil
}

// =============================================================================
// Read
// =============================================================================

func (s *orderService) ListOrders(ctx context.Context, user *domain.User, params ListOrdersParams) (*domain.OrderPage, error) {
	const op = "order.list"

	if user == nil {
		return nil, domain.Unauthorized(op, "Unauthorized: No token provided")
	}

	page := params.Page
	if page < 1 {
		page = 1
	}
	limit := params.Limit
	if limit <= 0 {
		limit = DefaultOrderPageSize
	}
	if limit > MaxOrderPageSize {
		limit = MaxOrderPageSize
	}

	var status *string
	if params.Status != "" {
		if !domain.OrderStatus(params.Status).IsValid() {
			return nil, domain.ErrInvalidStatus.WithOp(op)
		}
		status = &params.Status
	}

	sortBy, ok := sortColumns[params.SortBy]
	if !ok {
		return nil, domain.Invalid(op, "Invalid sortBy; use createdAt, total or status")
	}
	sortOrder := strings.ToLower(params.SortOrder)
	switch sortOrder {
	case "":
		sortOrder = "desc"
	case "asc", "desc":
	default:
		return nil, domain.Invalid(op, "Invalid sortOrder; use asc or desc")
	}

	if (params.All || params.UserID != "") && !user.IsAdmin {
		return nil, domain.ErrAllOrdersForbidden.WithOp(op)
	}

	ownerID := &user.ID
	switch {
	case params.UserID != "":
		id, err := uuid.Parse(params.UserID)
		if err != nil {
			return nil, domain.Invalid(op, "Invalid user ID")
		}
		ownerID = &id
	case params.All:
		ownerID = nil
	}

	statusText := repository.Text("")
	if status != nil {
		statusText = repository.Text(*status)
	}

	total, err := s.store.CountOrders(ctx, repository.CountOrdersParams{
		UserID: repository.NullUUID(ownerID),
		Status: statusText,
	})
	if err != nil {
		return nil, wrapInternal(err, op, "Failed to fetch orders")
	}

	rows, err := s.store.ListOrders(ctx, repository.ListOrdersParams{
		UserID:    repository.NullUUID(ownerID),
		Status:    statusText,
		SortBy:    sortBy,
		SortOrder: sortOrder,
		Limit:     int32(limit),
		Offset:    int32((page - 1) * limit),
	})
	if err != nil {
		return nil, wrapInternal(err, op, "Failed to fetch orders")
	}

	orders := make([]domain.Order, 0, len(rows))
	if len(rows) > 0 {
		ids := make([]uuid.UUID, len(rows))
		for i, row := range rows {
			ids[i] = repository.FromUUID(row.ID)
		}
		items, err := s.store.ListOrderItems(ctx, repository.UUIDs(ids))
		if err != nil {
			return nil, wrapInternal(err, op, "Failed to fetch orders")
		}
		byOrder := groupItems(items)
		for i, row := range rows {
			orders = append(orders, *orderFromRow(row, byOrder[ids[i]]))
		}
	}

	return &domain.OrderPage{
		Orders: orders,
		Pagination: domain.Pagination{
			CurrentPage: page,
			TotalPages:  int(math.Ceil(float64(total) / float64(limit))),
			TotalOrders: total,
			Limit:       limit,
		},
	}, nil
}

func (s *orderService) GetOrder(ctx context.Context, user *domain.User, orderID string) (*domain.Order, error) {
	const op = "order.get"

	id, err := parseOrderID(op, orderID)
	if err != nil {
		return nil, err
	}

	order, err := s.loadOrder(ctx, op, s.store, id)
	if err != nil {
		return nil, err
	}
	if !canView(user, order) {
		return nil, domain.ErrOrderNotFound.WithOp(op)
	}
	return order, nil
}

// loadOrder reads an order and its items.
func (s *orderService) loadOrder(ctx context.Context, op string, q repository.Querier, id uuid.UUID) (*domain.Order, error) {
	row, err := q.GetOrder(ctx, repository.UUID(id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound.WithOp(op)
		}
		return nil, wrapInternal(err, op, "Failed to fetch order details")
	}
	return withItems(ctx, op, q, row)
}

func withItems(ctx context.Context, op string, q repository.Querier, row repository.Order) (*domain.Order, error) {
	items, err := q.ListOrderItems(ctx, []pgtype.UUID{row.ID})
	if err != nil {
		return nil, wrapInternal(err, op, "Failed to fetch order items")
	}
	return orderFromRow(row, items), nil
}

func canView(user *domain.User, order *domain.Order) bool {
	if user == nil {
		return false
	}
	return user.IsAdmin || order.UserID == user.ID
}

func parseOrderID(op, orderID string) (uuid.UUID, error) {
	id, err := uuid.Parse(orderID)
	if err != nil {
		return uuid.Nil, domain.ErrInvalidOrderID.WithOp(op)
	}
	return id, nil
}

// =============================================================================
// Status
// =============================================================================

func (s *orderService) UpdateStatus(ctx context.Context, user *domain.User, orderID string, status string) (*domain.Order, error) {
	const op = "order.update_status"

	if user == nil || !user.IsAdmin {
		return nil, domain.Forbidden(op, "Access denied: Admin privileges required")
	}

	id, err := parseOrderID(op, orderID)
	if err != nil {
		return nil, err
	}

	next := domain.OrderStatus(status)
	if !next.IsValid() {
		return nil, domain.ErrInvalidStatus.WithOp(op)
	}

	var (
		order   *domain.Order
		from    domain.OrderStatus
		changed bool
		skipped int
	)
	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		row, err := q.GetOrderForUpdate(ctx, repository.UUID(id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrOrderNotFound.WithOp(op)
			}
			return fmt.Errorf("failed to lock order: %w", err)
		}
		from = domain.OrderStatus(row.Status)

		if from == next {
			order, err = withItems(ctx, op, q, row)
			return err
		}
		if !from.CanTransitionTo(next) {
			return domain.Invalid(op, fmt.Sprintf("Invalid status transition from %s to %s", from, next))
		}

		updated, err := q.UpdateOrderStatus(ctx, repository.UpdateOrderStatusParams{
			ID:         row.ID,
			Status:     string(next),
			FromStatus: string(from),
		})
		if err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}

		order, err = withItems(ctx, op, q, updated)
		if err != nil {
			return err
		}

		if next.ReleasesStock() && updated.InventoryUpdated && !updated.InventoryRestored {
			skipped, err = inventory.Restore(ctx, q, order.Items)
			if err != nil {
				return err
			}
			if err := q.MarkInventoryRestored(ctx, updated.ID); err != nil {
				return fmt.Errorf("failed to mark inventory restored: %w", err)
			}
			order.InventoryRestored = true
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, wrapInternal(err, op, "Failed to update order status")
	}

	if !changed {
		return order, nil
	}

	if skipped > 0 {
		s.logger.Warn("stock not restored for deleted weight options", "order_id", order.ID, "skipped", skipped)
	}
	s.metrics.RecordStatusChange(string(from), string(next))
	s.publish(ctx, domain.EventOrderStatusChanged, order)
	if next == domain.OrderStatusShipped {
		s.enqueueShippingEmail(ctx, order)
	}

	s.logger.Info("order status updated",
		"order_id", order.ID,
		"from", from,
		"to", next,
		"admin_id", user.ID,
	)
	return order, nil
}

// =============================================================================
// Side effects
// =============================================================================

func (s *orderService) publish(ctx context.Context, eventType string, order *domain.Order) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, domain.NewOrderEvent(eventType, order)); err != nil {
		s.logger.Warn("failed to publish order event", "event", eventType, "order_id", order.ID, "error", err)
	}
}

func (s *orderService) enqueueConfirmationEmail(ctx context.Context, order *domain.Order) {
	if order.Email == "" {
		return
	}
	err := jobs.EnqueueOrderConfirmationEmail(ctx, s.store, jobs.OrderConfirmationPayload{
		OrderID:          order.ID,
		Email:            order.Email,
		CustomerName:     order.Name,
		OrderDate:        order.CreatedAt,
		Items:            emailItems(order.Items),
		SubtotalPaise:    domain.ToPaise(order.Subtotal),
		DeliveryFeePaise: domain.ToPaise(order.DeliveryFee),
		TotalPaise:       domain.ToPaise(order.Total),
		PaymentMethod:    string(order.PaymentMethod),
		Address:          emailAddress(order.ShippingAddress),
	})
	s.afterEnqueue(jobs.JobTypeOrderConfirmation, order.ID, err)
}

func (s *orderService) enqueueShippingEmail(ctx context.Context, order *domain.Order) {
	if order.Email == "" {
		return
	}
	shippedAt := time.Now()
	if order.ShippedAt != nil {
		shippedAt = *order.ShippedAt
	}
	err := jobs.EnqueueShippingConfirmationEmail(ctx, s.store, jobs.ShippingConfirmationPayload{
		OrderID:      order.ID,
		Email:        order.Email,
		CustomerName: order.Name,
		ShippedAt:    shippedAt,
		Items:        emailItems(order.Items),
		Address:      emailAddress(order.ShippingAddress),
	})
	s.afterEnqueue(jobs.JobTypeShippingConfirmation, order.ID, err)
}

func (s *orderService) enqueueRefundEmail(ctx context.Context, order *domain.Order, amountPaise int64, reason string) {
	if order.Email == "" {
		return
	}
	err := jobs.EnqueueRefundIssuedEmail(ctx, s.store, jobs.RefundIssuedPayload{
		OrderID:      order.ID,
		Email:        order.Email,
		CustomerName: order.Name,
		AmountPaise:  amountPaise,
		Reason:       reason,
		FullRefund:   order.PaymentStatus == domain.PaymentStatusRefunded,
	})
	s.afterEnqueue(jobs.JobTypeRefundIssued, order.ID, err)
}

// afterEnqueue logs a failed email enqueue; the order change itself stands.
func (s *orderService) afterEnqueue(jobType string, orderID uuid.UUID, err error) {
	if err != nil {
		s.logger.Error("failed to enqueue email", "job_type", jobType, "order_id", orderID, "error", err)
		return
	}
	s.metrics.RecordJobEnqueued(jobType)
}

func emailItems(items []domain.OrderItem) []jobs.EmailItem {
	out := make([]jobs.EmailItem, len(items))
	for i, item := range items {
		out[i] = jobs.EmailItem{
			Name:       item.Name,
			Weight:     item.Weight,
			Quantity:   item.Quantity,
			PricePaise: domain.ToPaise(item.Price),
		}
	}
	return out
}

func emailAddress(a domain.ShippingAddress) jobs.EmailAddress {
	return jobs.EmailAddress{
		Name:     a.Name,
		Phone:    a.Phone,
		Address:  a.Address,
		District: a.District,
		State:    a.State,
		Zip:      a.Zip,
	}
}

// wrapInternal passes domain errors through and hides everything else
// behind an internal error.
func wrapInternal(err error, op, message string) error {
	var de *domain.Error
	var ve *domain.ValidationError
	if errors.As(err, &de) || errors.As(err, &ve) {
		return err
	}
	return domain.Internal(err, op, message)
}
