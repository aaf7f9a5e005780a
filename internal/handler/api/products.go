package api

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/dukerupert/haat/internal/domain"
	"github.com/dukerupert/haat/internal/handler"
)

// ProductHandler serves the public catalog.
type ProductHandler struct {
	catalog domain.CatalogService
}

// NewProductHandler creates a new product handler
func NewProductHandler(catalog domain.CatalogService) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

// List handles GET /api/products?category=&district=&trending=
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter domain.ProductFilter
	if v := q.Get("category"); v != "" {
		filter.Category = &v
	}
	if v := q.Get("district"); v != "" {
		filter.District = &v
	}
	if v := q.Get("trending"); v != "" {
		trending, err := strconv.ParseBool(v)
		if err != nil {
			handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "product.list", "Invalid trending flag"))
			return
		}
		filter.TrendingOnly = trending
	}

	products, err := h.catalog.ListProducts(r.Context(), filter)
	if err != nil {
		handler.ErrorResponse(w, r, domain.Internal(err, "product.list", "failed to list products"))
		return
	}

	handler.JSON(w, http.StatusOK, products)
}

// Get handles GET /api/products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handler.ErrorResponse(w, r, domain.ErrInvalidProductID)
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		if domain.ErrorCode(err) == domain.EINTERNAL {
			err = domain.Internal(err, "product.get", "failed to get product")
		}
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, http.StatusOK, product)
}
