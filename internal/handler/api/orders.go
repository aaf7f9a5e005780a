package api

import (
	"net/http"
	"strconv"

	"github.com/dukerupert/haat/internal/domain"
	"github.com/dukerupert/haat/internal/handler"
	"github.com/dukerupert/haat/internal/middleware"
	"github.com/dukerupert/haat/internal/service"
)

// OrderHandler serves checkout, order history, administration and payment
// completion.
type OrderHandler struct {
	orders service.OrderService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type createOrderResponse struct {
	Success bool                     `json:"success"`
	Message string                   `json:"message"`
	Order   *domain.Order            `json:"order"`
	Payment *service.CheckoutPayment `json:"payment,omitempty"`
}

// Create handles POST /api/orders
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req service.CreateOrderRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	result, err := h.orders.CreateOrder(r.Context(), user, req)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	middleware.GetLogger(r.Context()).Info("order created",
		"order_id", result.Order.ID,
		"payment_method", result.Order.PaymentMethod,
		"total", result.Order.Total.StringFixed(2),
	)

	handler.JSON(w, http.StatusCreated, createOrderResponse{
		Success: true,
		Message: "Order created successfully",
		Order:   result.Order,
		Payment: result.Payment,
	})
}

type listOrdersResponse struct {
	Success bool `json:"success"`
	*domain.OrderPage
}

// List handles GET /api/orders?page&limit&status&all&userId&sortBy&sortOrder
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	params := service.ListOrdersParams{
		Status:    q.Get("status"),
		UserID:    q.Get("userId"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	}

	var err error
	if params.Page, err = queryInt(q.Get("page")); err != nil {
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "order.list", "Invalid page"))
		return
	}
	if params.Limit, err = queryInt(q.Get("limit")); err != nil {
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "order.list", "Invalid limit"))
		return
	}
	if v := q.Get("all"); v != "" {
		if params.All, err = strconv.ParseBool(v); err != nil {
			handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "order.list", "Invalid all flag"))
			return
		}
	}

	page, err := h.orders.ListOrders(r.Context(), user, params)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, listOrdersResponse{Success: true, OrderPage: page})
}

type orderResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Order   *domain.Order `json:"order"`
}

// Get handles GET /api/orders/{id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(r.Context(), user, r.PathValue("id"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, orderResponse{Success: true, Order: order})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles PATCH /api/orders/{id}/status (admin)
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), user, r.PathValue("id"), req.Status)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, orderResponse{
		Success: true,
		Message: "Order status updated",
		Order:   order,
	})
}

// CompletePayment handles POST /api/orders/{id}/complete-payment. A repeat
// call for a settled order succeeds without touching stock again.
func (h *OrderHandler) CompletePayment(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req service.CompletePaymentRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	confirmation, err := h.orders.CompletePayment(r.Context(), user, r.PathValue("id"), req)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	msg := "Payment completed successfully"
	if confirmation.AlreadyProcessed {
		msg = "Payment already processed"
	}
	handler.JSON(w, http.StatusOK, orderResponse{
		Success: true,
		Message: msg,
		Order:   confirmation.Order,
	})
}

type refundResponse struct {
	Success bool `json:"success"`
	*service.RefundResult
}

// Refund handles POST /api/orders/{id}/refund (admin). An empty body
// refunds the remaining balance.
func (h *OrderHandler) Refund(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req service.RefundRequest
	if r.ContentLength != 0 {
		if err := handler.DecodeJSON(r, &req); err != nil {
			handler.ErrorResponse(w, r, err)
			return
		}
	}

	result, err := h.orders.RefundOrder(r.Context(), user, r.PathValue("id"), req)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, refundResponse{Success: true, RefundResult: result})
}

type paymentResponse struct {
	Success bool                 `json:"success"`
	Payment *service.PaymentInfo `json:"payment"`
}

// FetchPayment handles GET /api/payments/{paymentId} (admin)
func (h *OrderHandler) FetchPayment(w http.ResponseWriter, r *http.Request) {
	info, err := h.orders.FetchPayment(r.Context(), r.PathValue("paymentId"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, paymentResponse{Success: true, Payment: info})
}

// queryInt parses an optional integer query parameter; empty is zero.
func queryInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
