package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/haat/internal/auth"
	"github.com/dukerupert/haat/internal/domain"
	"github.com/dukerupert/haat/internal/postgres"
	"github.com/dukerupert/haat/internal/repository/repotest"
	"github.com/dukerupert/haat/internal/service"
)

func TestProductHandler_List(t *testing.T) {
	var got domain.ProductFilter
	catalog := &mockCatalog{
		ListProductsFunc: func(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
			got = filter
			return []domain.Product{{ID: uuid.New(), Name: "Kashmiri Chilli"}}, nil
		},
	}
	h := NewProductHandler(catalog)

	rec := serve("GET /api/products", h.List, newRequest(http.MethodGet, "/api/products?category=spices&trending=true", "", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got.Category)
	assert.Equal(t, "spices", *got.Category)
	assert.Nil(t, got.District)
	assert.True(t, got.TrendingOnly)

	var products []domain.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	assert.Len(t, products, 1)

	rec = serve("GET /api/products", h.List, newRequest(http.MethodGet, "/api/products?trending=often", "", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProductHandler_ListStoreError(t *testing.T) {
	catalog := &mockCatalog{
		ListProductsFunc: func(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
			return nil, errors.New("connection reset")
		},
	}
	rec := serve("GET /api/products", NewProductHandler(catalog).List, newRequest(http.MethodGet, "/api/products", "", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "An internal error occurred. Please try again later.", errorField(t, rec, "message"))
}

func TestProductHandler_Get(t *testing.T) {
	known := uuid.New()
	catalog := &mockCatalog{
		GetProductFunc: func(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
			if id != known {
				return nil, domain.ErrProductNotFound
			}
			return &domain.Product{ID: id, Name: "Darjeeling First Flush"}, nil
		},
	}
	h := NewProductHandler(catalog)
	pattern := "GET /api/products/{id}"

	tests := []struct {
		name       string
		id         string
		wantStatus int
	}{
		{name: "found", id: known.String(), wantStatus: http.StatusOK},
		{name: "unknown", id: uuid.NewString(), wantStatus: http.StatusNotFound},
		{name: "malformed", id: "chilli", wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(pattern, h.Get, newRequest(http.MethodGet, "/api/products/"+tt.id, "", nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestCartHandler_Flow(t *testing.T) {
	user := testUser()
	h := NewCartHandler(service.NewCartService(repotest.New(), nil, discardLogger()))
	productID := uuid.New()
	addBody := `{"productId":"` + productID.String() + `","name":"Kashmiri Chilli","price":"120.50","weight":"250g","quantity":2}`

	rec := serve("POST /api/cart", h.Add, newRequest(http.MethodPost, "/api/cart", addBody, user))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	itemID := decodeBody(t, rec)["id"].(string)

	rec = serve("PUT /api/cart/{id}", h.Update, newRequest(http.MethodPut, "/api/cart/"+itemID, `{"quantity":5}`, user))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(5), decodeBody(t, rec)["quantity"])

	rec = serve("PUT /api/cart/{id}", h.Update, newRequest(http.MethodPut, "/api/cart/"+itemID, `{"quantity":0}`, user))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve("GET /api/cart", h.List, newRequest(http.MethodGet, "/api/cart", "", user))
	require.Equal(t, http.StatusOK, rec.Code)
	var items []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	assert.Len(t, items, 1)

	// Another user cannot touch the item.
	rec = serve("DELETE /api/cart/{id}", h.Remove, newRequest(http.MethodDelete, "/api/cart/"+itemID, "", testUser()))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve("DELETE /api/cart/{id}", h.Remove, newRequest(http.MethodDelete, "/api/cart/"+itemID, "", user))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Item removed from cart", decodeBody(t, rec)["message"])

	rec = serve("DELETE /api/cart", h.Clear, newRequest(http.MethodDelete, "/api/cart", "", user))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decodeBody(t, rec)["deletedCount"])
}

func TestWishlistHandler_Flow(t *testing.T) {
	user := testUser()
	h := NewWishlistHandler(service.NewWishlistService(repotest.New(), nil, discardLogger()))
	productID := uuid.New().String()
	addBody := `{"productId":"` + productID + `","name":"Darjeeling Tea","price":"450"}`

	rec := serve("POST /api/wishlist", h.Add, newRequest(http.MethodPost, "/api/wishlist", addBody, user))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = serve("POST /api/wishlist", h.Add, newRequest(http.MethodPost, "/api/wishlist", addBody, user))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Item already in wishlist", errorField(t, rec, "message"))

	rec = serve("GET /api/wishlist", h.List, newRequest(http.MethodGet, "/api/wishlist", "", user))
	require.Equal(t, http.StatusOK, rec.Code)
	var items []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	assert.Len(t, items, 1)

	pattern := "DELETE /api/wishlist/{productId}"
	rec = serve(pattern, h.Remove, newRequest(http.MethodDelete, "/api/wishlist/"+productID, "", user))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Item removed", body["message"])
	assert.Equal(t, productID, body["deletedId"])

	rec = serve(pattern, h.Remove, newRequest(http.MethodDelete, "/api/wishlist/"+productID, "", user))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type capturingSMS struct {
	codes map[string]string
}

func (s *capturingSMS) SendOTP(ctx context.Context, phone, otp string) error {
	s.codes[phone] = otp
	return nil
}

func TestAuthHandler_OTPLogin(t *testing.T) {
	store := repotest.New()
	users := postgres.NewUserService(store)
	tokens, err := auth.NewTokenService("handler-secret", time.Hour, users)
	require.NoError(t, err)
	sms := &capturingSMS{codes: map[string]string{}}
	h := NewAuthHandler(service.NewAuthService(users, sms, tokens, tokens, service.AuthConfig{}, nil, discardLogger()))

	rec := serve("POST /api/auth/send-otp", h.SendOTP,
		newRequest(http.MethodPost, "/api/auth/send-otp", `{"phone":"9876543210"}`, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sent := decodeBody(t, rec)
	assert.Equal(t, "OTP sent successfully", sent["message"])
	assert.Nil(t, sent["otp"], "codes are never echoed outside echo mode")

	otp := sms.codes["9876543210"]
	require.NotEmpty(t, otp)

	rec = serve("POST /api/auth/verify-otp", h.VerifyOTP,
		newRequest(http.MethodPost, "/api/auth/verify-otp", `{"phone":"9876543210","otp":"`+otp+`"}`, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	login := decodeBody(t, rec)
	token, _ := login["token"].(string)
	require.NotEmpty(t, token)

	t.Run("token in body", func(t *testing.T) {
		rec := serve("POST /api/auth/verify-token", h.VerifyToken,
			newRequest(http.MethodPost, "/api/auth/verify-token", `{"token":"`+token+`"}`, nil))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := decodeBody(t, rec)
		assert.Equal(t, true, body["valid"])
		assert.Equal(t, "9876543210", body["user"].(map[string]any)["phone"])
	})

	t.Run("token in header", func(t *testing.T) {
		req := newRequest(http.MethodPost, "/api/auth/verify-token", "", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := serve("POST /api/auth/verify-token", h.VerifyToken, req)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := serve("POST /api/auth/verify-token", h.VerifyToken,
			newRequest(http.MethodPost, "/api/auth/verify-token", `{"token":"nope"}`, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAuthHandler_SendOTPInvalidPhone(t *testing.T) {
	h := NewAuthHandler(service.NewAuthService(nil, nil, nil, nil, service.AuthConfig{}, nil, discardLogger()))

	rec := serve("POST /api/auth/send-otp", h.SendOTP,
		newRequest(http.MethodPost, "/api/auth/send-otp", `{"phone":"12345"}`, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

