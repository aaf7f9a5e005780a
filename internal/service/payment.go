package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/haat/internal/billing"
	"github.com/dukerupert/haat/internal/domain"
	"github.com/dukerupert/haat/internal/inventory"
	"github.com/dukerupert/haat/internal/repository"
	"github.com/dukerupert/haat/internal/telemetry"
)

// Sources of a payment confirmation, used as a metric label.
const (
	sourceManual    = "manual"
	sourceWebhook   = "webhook"
	sourceReconcile = "reconcile"
)

// reconcileBatchSize caps the orders examined in one reconciliation pass.
const reconcileBatchSize = 100

// CompletePaymentRequest is the checkout callback sent by the client.
type CompletePaymentRequest struct {
	GatewayOrderID string `json:"gatewayOrderId" validate:"required"`
	PaymentID      string `json:"paymentId" validate:"required"`
	Signature      string `json:"signature" validate:"required"`
}

// PaymentConfirmation is the outcome of confirming a payment.
// AlreadyProcessed is set when an earlier signal had already confirmed it.
type PaymentConfirmation struct {
	Order            *domain.Order `json:"order"`
	AlreadyProcessed bool          `json:"alreadyProcessed"`
}

// PaymentEventResult describes how a webhook event was applied.
type PaymentEventResult struct {
	Message string    `json:"message"`
	OrderID uuid.UUID `json:"orderId,omitempty"`
	Ignored bool      `json:"-"`
}

// RefundRequest asks for a refund. A nil Amount refunds the remaining balance.
type RefundRequest struct {
	Amount *decimal.Decimal `json:"amount,omitempty"`
	Reason string           `json:"reason,omitempty"`
}

// RefundResult is a completed refund and the updated order.
type RefundResult struct {
	RefundID string          `json:"refundId"`
	Amount   decimal.Decimal `json:"amount"`
	Status   string          `json:"status"`
	Order    *domain.Order   `json:"order"`
}

// PaymentInfo is a gateway payment as shown to admins.
type PaymentInfo struct {
	ID       string          `json:"id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Status   string          `json:"status"`
	Method   string          `json:"method"`
	Captured bool            `json:"captured"`
	Bank     string          `json:"bank,omitempty"`
	Email    string          `json:"email,omitempty"`
	Contact  string          `json:"contact,omitempty"`
	OrderID  string          `json:"orderId"`
}

// =============================================================================
// Confirmation
// =============================================================================

func (s *orderService) CompletePayment(ctx context.Context, user *domain.User, orderID string, req CompletePaymentRequest) (*PaymentConfirmation, error) {
	const op = "order.complete_payment"

	id, err := parseOrderID(op, orderID)
	if err != nil {
		return nil, err
	}
	if err := validateStruct(op, &req); err != nil {
		return nil, err
	}

	order, err := s.loadOrder(ctx, op, s.store, id)
	if err != nil {
		return nil, err
	}
	if !canView(user, order) {
		return nil, domain.ErrOrderNotFound.WithOp(op)
	}
	if !order.PaymentMethod.IsOnline() {
		return nil, domain.ErrNotOnlineOrder.WithOp(op)
	}
	if order.GatewayOrderID == "" || order.GatewayOrderID != req.GatewayOrderID {
		return nil, domain.ErrGatewayOrderMismatch.WithOp(op)
	}

	if err := s.provider.VerifyPaymentSignature(req.GatewayOrderID, req.PaymentID, req.Signature); err != nil {
		s.metrics.RecordPaymentFailed("invalid_signature")
		s.logger.Warn("payment signature rejected",
			"order_id", order.ID,
			"gateway_order_id", req.GatewayOrderID,
			"payment_id", req.PaymentID,
		)
		return nil, domain.ErrInvalidSignature.WithOp(op)
	}

	start := time.Now()
	payment, err := s.provider.FetchPayment(ctx, req.PaymentID)
	s.metrics.ObserveGatewayCall(s.provider.Name(), "fetch_payment", time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, billing.ErrPaymentNotFound) {
			return nil, domain.ErrPaymentNotCaptured.WithOp(op)
		}
		return nil, domain.Gateway(err, op, "Failed to verify payment")
	}
	if !payment.IsCaptured() {
		s.metrics.RecordPaymentFailed("not_captured")
		return nil, domain.ErrPaymentNotCaptured.WithOp(op)
	}
	if payment.GatewayOrderID != "" && payment.GatewayOrderID != req.GatewayOrderID {
		return nil, domain.ErrGatewayOrderMismatch.WithOp(op)
	}

	return s.confirmPayment(ctx, op, sourceManual, req.GatewayOrderID, req.PaymentID, req.Signature)
}

func (s *orderService) ConfirmPayment(ctx context.Context, gatewayOrderID, paymentID, signature string) (*PaymentConfirmation, error) {
	return s.confirmPayment(ctx, "order.confirm_payment", sourceManual, gatewayOrderID, paymentID, signature)
}

// confirmPayment marks the order behind gatewayOrderID paid and takes stock.
// The order row is locked for the duration so concurrent signals for the
// same payment serialize and only the first one decrements.
func (s *orderService) confirmPayment(ctx context.Context, op, source, gatewayOrderID, paymentID, signature string) (*PaymentConfirmation, error) {
	row, err := s.store.GetOrderByGatewayOrderID(ctx, repository.Text(gatewayOrderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound.WithOp(op)
		}
		return nil, wrapInternal(err, op, "Failed to confirm payment")
	}

	var (
		order     *domain.Order
		processed bool
		cancelled bool
	)
	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		locked, err := q.GetOrderForUpdate(ctx, row.ID)
		if err != nil {
			return fmt.Errorf("failed to lock order: %w", err)
		}

		current, err := withItems(ctx, op, q, locked)
		if err != nil {
			return err
		}
		if current.IsPaymentSettled() || current.PaymentStatus == domain.PaymentStatusRefunded {
			order = current
			processed = true
			return nil
		}
		if current.Status == domain.OrderStatusCancelled {
			order = current
			cancelled = true
			return nil
		}

		if err := inventory.Decrement(ctx, q, current.Items); err != nil {
			order = current
			return err
		}

		paid, err := q.MarkOrderPaid(ctx, repository.MarkOrderPaidParams{
			ID:               locked.ID,
			PaymentID:        repository.Text(paymentID),
			Signature:        repository.Text(signature),
			InventoryUpdated: true,
		})
		if err != nil {
			return fmt.Errorf("failed to mark order paid: %w", err)
		}
		order = orderFromRow(paid, nil)
		order.Items = current.Items
		return nil
	})

	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInsufficientStock):
		return nil, s.recordShortfall(ctx, op, source, order, paymentID, signature, err)
	default:
		return nil, wrapInternal(err, op, "Failed to confirm payment")
	}

	if processed {
		s.logger.Info("payment already processed",
			"order_id", order.ID,
			"payment_id", paymentID,
			"source", source,
		)
		return &PaymentConfirmation{Order: order, AlreadyProcessed: true}, nil
	}

	if cancelled {
		// Keep the captured payment on record so it can be refunded.
		if _, perr := s.store.MarkOrderPaid(ctx, repository.MarkOrderPaidParams{
			ID:        repository.UUID(order.ID),
			PaymentID: repository.Text(paymentID),
			Signature: repository.Text(signature),
		}); perr != nil {
			s.logger.Error("failed to record payment for cancelled order", "order_id", order.ID, "error", perr)
		}
		s.logger.Warn("payment captured for cancelled order",
			"order_id", order.ID,
			"payment_id", paymentID,
			"source", source,
		)
		telemetry.CaptureErrorWithOrder(domain.ErrOrderCancelled, order.ID.String(), map[string]interface{}{
			"payment_id": paymentID,
			"source":     source,
		})
		return nil, domain.ErrOrderCancelled.WithOp(op)
	}

	s.metrics.RecordPaymentConfirmed(source, string(order.PaymentMethod), order.Total.InexactFloat64())
	s.publish(ctx, domain.EventOrderPaid, order)

	s.logger.Info("payment confirmed",
		"order_id", order.ID,
		"payment_id", paymentID,
		"source", source,
		"total", order.Total.StringFixed(2),
	)
	return &PaymentConfirmation{Order: order}, nil
}

// recordShortfall stores a captured payment whose stock could not be taken.
// The order stays paid with inventory_updated=false for an operator to
// refund or restock.
func (s *orderService) recordShortfall(ctx context.Context, op, source string, order *domain.Order, paymentID, signature string, cause error) error {
	if _, err := s.store.MarkOrderPaid(ctx, repository.MarkOrderPaidParams{
		ID:               repository.UUID(order.ID),
		PaymentID:        repository.Text(paymentID),
		Signature:        repository.Text(signature),
		InventoryUpdated: false,
	}); err != nil {
		s.logger.Error("failed to record payment after stock shortfall", "order_id", order.ID, "error", err)
	}

	s.metrics.RecordStockShortfall(source)
	telemetry.CaptureErrorWithOrder(cause, order.ID.String(), map[string]interface{}{
		"payment_id": paymentID,
		"source":     source,
		"total":      order.Total.StringFixed(2),
	})
	s.logger.Error("stock shortfall after payment capture",
		"order_id", order.ID,
		"payment_id", paymentID,
		"source", source,
		"error", cause,
	)

	var de *domain.Error
	if errors.As(cause, &de) {
		return &domain.Error{Code: de.Code, Op: op, Message: de.Message, Err: domain.ErrInsufficientStock}
	}
	return domain.ErrInsufficientStock.WithOp(op)
}

// =============================================================================
// Webhooks
// =============================================================================

func (s *orderService) HandlePaymentEvent(ctx context.Context, event *billing.WebhookEvent) (*PaymentEventResult, error) {
	const op = "order.payment_event"

	switch event.Type {
	case billing.EventPaymentCaptured:
		confirmation, err := s.confirmPayment(ctx, op, sourceWebhook, event.GatewayOrderID, event.PaymentID, "")
		if err != nil {
			return nil, err
		}
		if confirmation.AlreadyProcessed {
			return &PaymentEventResult{Message: "Payment already processed", OrderID: confirmation.Order.ID}, nil
		}
		return &PaymentEventResult{Message: "Payment captured", OrderID: confirmation.Order.ID}, nil

	case billing.EventPaymentFailed:
		return s.recordPaymentFailure(ctx, op, event)
	}

	return &PaymentEventResult{Message: "Event ignored", Ignored: true}, nil
}

func (s *orderService) recordPaymentFailure(ctx context.Context, op string, event *billing.WebhookEvent) (*PaymentEventResult, error) {
	row, err := s.store.GetOrderByGatewayOrderID(ctx, repository.Text(event.GatewayOrderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound.WithOp(op)
		}
		return nil, wrapInternal(err, op, "Failed to record payment failure")
	}
	orderID := repository.FromUUID(row.ID)

	failed, err := s.store.MarkOrderPaymentFailed(ctx, row.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Already paid, or an admin moved the order on; a late failure
			// for an earlier attempt changes nothing.
			return &PaymentEventResult{Message: "Event ignored", OrderID: orderID, Ignored: true}, nil
		}
		return nil, wrapInternal(err, op, "Failed to record payment failure")
	}

	reason := "gateway_declined"
	if event.Payment != nil && event.Payment.ErrorReason != "" {
		reason = event.Payment.ErrorReason
	}
	s.metrics.RecordPaymentFailed(reason)

	order := orderFromRow(failed, nil)
	s.publish(ctx, domain.EventOrderPaymentFailed, order)

	s.logger.Info("payment failure recorded",
		"order_id", orderID,
		"payment_id", event.PaymentID,
		"reason", reason,
	)
	return &PaymentEventResult{Message: "Payment failure recorded", OrderID: orderID}, nil
}

// =============================================================================
// Refunds
// =============================================================================

func (s *orderService) RefundOrder(ctx context.Context, user *domain.User, orderID string, req RefundRequest) (*RefundResult, error) {
	const op = "order.refund"

	if user == nil || !user.IsAdmin {
		return nil, domain.Forbidden(op, "Access denied: Admin privileges required")
	}

	id, err := parseOrderID(op, orderID)
	if err != nil {
		return nil, err
	}

	order, err := s.loadOrder(ctx, op, s.store, id)
	if err != nil {
		return nil, err
	}
	if order.PaymentID == "" || !(order.PaymentStatus == domain.PaymentStatusPaid || order.PaymentStatus == domain.PaymentStatusRefunded) {
		return nil, domain.ErrNoCapturedPayment.WithOp(op)
	}

	totalPaise := domain.ToPaise(order.Total)
	refundedPaise := domain.ToPaise(order.RefundedAmount)
	remaining := totalPaise - refundedPaise
	if remaining <= 0 {
		return nil, domain.ErrRefundExceedsBalance.WithOp(op)
	}

	amount := remaining
	if req.Amount != nil {
		amount = domain.ToPaise(*req.Amount)
		if amount <= 0 {
			return nil, domain.Invalid(op, "Refund amount must be greater than 0")
		}
		if amount > remaining {
			return nil, domain.InvalidWithDetails(op, domain.ErrRefundExceedsBalance.Message, map[string]any{
				"refundable": domain.FromPaise(remaining),
				"requested":  domain.FromPaise(amount),
			})
		}
	}

	reason := req.Reason
	if reason == "" {
		reason = "Customer requested refund"
	}

	start := time.Now()
	refund, err := s.provider.Refund(ctx, billing.RefundParams{
		PaymentID:   order.PaymentID,
		AmountPaise: amount,
		Notes: map[string]string{
			"reason":   reason,
			"order_id": order.ID.String(),
		},
		IdempotencyKey: fmt.Sprintf("refund-%s-%d", order.ID, refundedPaise),
	})
	s.metrics.ObserveGatewayCall(s.provider.Name(), "refund", time.Since(start).Seconds())
	if err != nil {
		s.logger.Error("refund failed",
			"order_id", order.ID,
			"payment_id", order.PaymentID,
			"amount_paise", amount,
			"error", err,
		)
		return nil, domain.Gateway(err, op, "Failed to process refund")
	}

	row, err := s.store.RecordRefund(ctx, repository.RecordRefundParams{
		ID:          repository.UUID(order.ID),
		RefundID:    repository.Text(refund.ID),
		AmountPaise: amount,
	})
	if err != nil {
		// Money has moved; make sure someone sees the missing bookkeeping.
		telemetry.CaptureErrorWithOrder(err, order.ID.String(), map[string]interface{}{
			"refund_id":    refund.ID,
			"amount_paise": amount,
		})
		return nil, wrapInternal(err, op, "Failed to record refund")
	}
	updated := orderFromRow(row, nil)
	updated.Items = order.Items

	kind := "partial"
	if updated.PaymentStatus == domain.PaymentStatusRefunded {
		kind = "full"
	}
	s.metrics.RecordRefund(kind, domain.FromPaise(amount).InexactFloat64())
	s.publish(ctx, domain.EventOrderRefunded, updated)
	s.enqueueRefundEmail(ctx, updated, amount, reason)

	s.logger.Info("order refunded",
		"order_id", order.ID,
		"refund_id", refund.ID,
		"amount_paise", amount,
		"kind", kind,
		"admin_id", user.ID,
	)

	return &RefundResult{
		RefundID: refund.ID,
		Amount:   domain.FromPaise(amount),
		Status:   refund.Status,
		Order:    updated,
	}, nil
}

func (s *orderService) FetchPayment(ctx context.Context, paymentID string) (*PaymentInfo, error) {
	const op = "order.fetch_payment"

	if paymentID == "" {
		return nil, domain.Invalid(op, "Payment ID is required")
	}

	start := time.Now()
	payment, err := s.provider.FetchPayment(ctx, paymentID)
	s.metrics.ObserveGatewayCall(s.provider.Name(), "fetch_payment", time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, billing.ErrPaymentNotFound) {
			return nil, domain.NotFound(op, "Payment")
		}
		return nil, domain.Gateway(err, op, "Failed to fetch payment details")
	}

	return &PaymentInfo{
		ID:       payment.ID,
		Amount:   domain.FromPaise(payment.AmountPaise),
		Currency: payment.Currency,
		Status:   payment.Status,
		Method:   payment.Method,
		Captured: payment.IsCaptured(),
		Bank:     payment.Bank,
		Email:    payment.Email,
		Contact:  payment.Contact,
		OrderID:  payment.GatewayOrderID,
	}, nil
}

// =============================================================================
// Reconciliation
// =============================================================================

// Reconcile outcomes, used as a metric label.
const (
	reconcileConfirmed    = "confirmed"
	reconcileExpired      = "expired"
	reconcileStillPending = "still_pending"
	reconcileError        = "error"
)

func (s *orderService) ReconcilePendingPayments(ctx context.Context, olderThan, expireAfter time.Duration) (*domain.ReconcileSummary, error) {
	const op = "order.reconcile"

	now := time.Now()
	rows, err := s.store.ListPendingPaymentOrders(ctx, repository.ListPendingPaymentOrdersParams{
		CreatedBefore: repository.Timestamptz(now.Add(-olderThan)),
		Limit:         reconcileBatchSize,
	})
	if err != nil {
		return nil, wrapInternal(err, op, "failed to list pending payments")
	}

	summary := &domain.ReconcileSummary{}
	for _, row := range rows {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		summary.Checked++

		outcome := s.reconcileOrder(ctx, op, row, now, expireAfter)
		s.metrics.RecordReconcile(outcome)
		switch outcome {
		case reconcileConfirmed:
			summary.Confirmed++
		case reconcileExpired:
			summary.Expired++
		case reconcileStillPending:
			summary.StillPending++
		default:
			summary.Errors++
		}
	}
	return summary, nil
}

func (s *orderService) reconcileOrder(ctx context.Context, op string, row repository.Order, now time.Time, expireAfter time.Duration) string {
	orderID := repository.FromUUID(row.ID)
	gatewayOrderID := row.GatewayOrderID.String
	logger := s.logger.With("order_id", orderID, "gateway_order_id", gatewayOrderID)

	start := time.Now()
	payments, err := s.provider.FetchOrderPayments(ctx, gatewayOrderID)
	s.metrics.ObserveGatewayCall(s.provider.Name(), "fetch_order_payments", time.Since(start).Seconds())
	if err != nil {
		logger.Error("failed to fetch gateway payments", "error", err)
		return reconcileError
	}

	for _, p := range payments {
		if !p.IsCaptured() {
			continue
		}
		_, err := s.confirmPayment(ctx, op, sourceReconcile, gatewayOrderID, p.ID, "")
		if err != nil {
			logger.Error("failed to confirm reconciled payment", "payment_id", p.ID, "error", err)
			return reconcileError
		}
		return reconcileConfirmed
	}

	if now.Sub(row.CreatedAt.Time) < expireAfter {
		return reconcileStillPending
	}

	failed, err := s.store.MarkOrderPaymentFailed(ctx, row.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Paid by another signal since the listing.
			return reconcileConfirmed
		}
		logger.Error("failed to expire pending payment", "error", err)
		return reconcileError
	}
	s.publish(ctx, domain.EventOrderPaymentFailed, orderFromRow(failed, nil))
	logger.Info("pending payment expired", "age", now.Sub(row.CreatedAt.Time).Round(time.Second))
	return reconcileExpired
}
