package api

import (
	"net/http"

	"github.com/dukerupert/haat/internal/handler"
	"github.com/dukerupert/haat/internal/service"
)

// CartHandler serves the caller's cart.
type CartHandler struct {
	cart service.CartService
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cart service.CartService) *CartHandler {
	return &CartHandler{cart: cart}
}

// List handles GET /api/cart
func (h *CartHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	items, err := h.cart.List(r.Context(), user.ID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, items)
}

// Add handles POST /api/cart. Adding a product and weight already in the
// cart increases its quantity.
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req service.AddCartItemRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	item, err := h.cart.Add(r.Context(), user.ID, req)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusCreated, item)
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// Update handles PUT /api/cart/{id}
func (h *CartHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req updateCartItemRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	item, err := h.cart.UpdateQuantity(r.Context(), user.ID, r.PathValue("id"), req.Quantity)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, item)
}

// Remove handles DELETE /api/cart/{id}
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.cart.Remove(r.Context(), user.ID, r.PathValue("id")); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, message{Success: true, Message: "Item removed from cart"})
}

type clearCartResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	DeletedCount int64  `json:"deletedCount"`
}

// Clear handles DELETE /api/cart
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	n, err := h.cart.Clear(r.Context(), user.ID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, clearCartResponse{Success: true, Message: "Cart cleared", DeletedCount: n})
}
