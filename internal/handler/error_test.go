package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/haat/internal/domain"
)

type envelope struct {
	Error struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{
			name:        "not found",
			err:         domain.ErrOrderNotFound,
			wantStatus:  http.StatusNotFound,
			wantCode:    domain.ENOTFOUND,
			wantMessage: "Order not found",
		},
		{
			name:        "forbidden",
			err:         domain.Forbidden("order.list", "Forbidden: Only admin users can view all orders"),
			wantStatus:  http.StatusForbidden,
			wantCode:    domain.EFORBIDDEN,
			wantMessage: "Forbidden: Only admin users can view all orders",
		},
		{
			name:        "gateway message is shown",
			err:         domain.Gateway(errors.New("dial tcp: timeout"), "order.create", "Failed to create payment order"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    domain.EGATEWAY,
			wantMessage: "Failed to create payment order",
		},
		{
			name:        "internal hides details",
			err:         domain.Internal(errors.New("connection refused"), "db.query", "failed to connect to 10.0.0.5:5432"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    domain.EINTERNAL,
			wantMessage: "An internal error occurred. Please try again later.",
		},
		{
			name:        "plain error",
			err:         errors.New("boom"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    domain.EINTERNAL,
			wantMessage: "An internal error occurred. Please try again later.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ErrorResponse(rec, httptest.NewRequest(http.MethodGet, "/api/orders", nil), tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			env := decode(t, rec)
			assert.Equal(t, tt.wantCode, env.Error.Code)
			assert.Equal(t, tt.wantMessage, env.Error.Message)
			assert.Empty(t, env.Error.Details)
		})
	}
}

func TestErrorResponse_ValidationDetails(t *testing.T) {
	ve := &domain.ValidationError{Op: "order.create", Title: "Validation failed"}
	ve.Add("Phone number must be 10 digits starting with 6-9")
	ve.Add("Postal code must be 6 digits")

	rec := httptest.NewRecorder()
	ErrorResponse(rec, httptest.NewRequest(http.MethodPost, "/api/orders", nil), ve.Err())

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "Validation failed", env.Error.Message)

	var details []string
	require.NoError(t, json.Unmarshal(env.Error.Details, &details))
	assert.Equal(t, []string{
		"Phone number must be 10 digits starting with 6-9",
		"Postal code must be 6 digits",
	}, details)
}

func TestConvenienceResponses(t *testing.T) {
	rec := httptest.NewRecorder()
	NotFoundResponse(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	UnauthorizedResponse(rec, httptest.NewRequest(http.MethodGet, "/api/cart", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized: No token provided", decode(t, rec).Error.Message)
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Asha"}`))
	require.NoError(t, DecodeJSON(req, &dst))
	assert.Equal(t, "Asha", dst.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	err := DecodeJSON(req, &dst)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	assert.Equal(t, "Invalid request body", domain.ErrorMessage(err))

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	assert.Equal(t, "Request body is required", domain.ErrorMessage(DecodeJSON(req, &dst)))

	rec := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"`+strings.Repeat("a", 64)+`"}`))
	req.Body = http.MaxBytesReader(rec, req.Body, 16)
	assert.Equal(t, domain.ETOOLARGE, domain.ErrorCode(DecodeJSON(req, &dst)))
}
