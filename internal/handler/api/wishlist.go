package api

import (
	"net/http"

	"github.com/dukerupert/haat/internal/handler"
	"github.com/dukerupert/haat/internal/service"
)

// WishlistHandler serves the caller's wishlist.
type WishlistHandler struct {
	wishlist service.WishlistService
}

// NewWishlistHandler creates a new wishlist handler
func NewWishlistHandler(wishlist service.WishlistService) *WishlistHandler {
	return &WishlistHandler{wishlist: wishlist}
}

// List handles GET /api/wishlist
func (h *WishlistHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	items, err := h.wishlist.List(r.Context(), user.ID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, items)
}

// Add handles POST /api/wishlist
func (h *WishlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req service.AddWishlistItemRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	item, err := h.wishlist.Add(r.Context(), user.ID, req)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusCreated, item)
}

type removeWishlistResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	DeletedID string `json:"deletedId"`
}

// Remove handles DELETE /api/wishlist/{productId}
func (h *WishlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	productID := r.PathValue("productId")
	if err := h.wishlist.Remove(r.Context(), user.ID, productID); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, removeWishlistResponse{Success: true, Message: "Item removed", DeletedID: productID})
}
