package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dukerupert/haat/internal/domain"
	"github.com/dukerupert/haat/internal/middleware"
	"github.com/dukerupert/haat/internal/telemetry"
)

// errorBody is the "error" member of every failed API response.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse renders err as {"error": {"code", "message", "details"}}
// with the status its code maps to. Server errors are logged with the
// underlying cause and reported to Sentry; their message is generic.
func ErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.ErrorCode(err)
	status := domain.HTTPStatus(code)

	logger := middleware.GetLogger(r.Context())
	attrs := []any{
		"error", err.Error(),
		"code", code,
		"status", status,
	}
	if op := domain.ErrorOp(err); op != "" {
		attrs = append(attrs, "op", op)
	}

	if status >= 500 {
		logger.Error("request failed", attrs...)
		telemetry.CaptureErrorFromContext(r.Context(), err, map[string]interface{}{
			"path":       r.URL.Path,
			"method":     r.Method,
			"request_id": domain.RequestIDFromContext(r.Context()),
		})
	} else {
		logger.Info("request rejected", attrs...)
	}

	JSON(w, status, map[string]errorBody{
		"error": {
			Code:    code,
			Message: domain.ErrorMessage(err),
			Details: domain.ErrorDetails(err),
		},
	})
}

// NotFoundResponse is a convenience wrapper for 404 errors.
func NotFoundResponse(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(w, r, domain.Errorf(domain.ENOTFOUND, "", "The requested resource was not found"))
}

// UnauthorizedResponse is a convenience wrapper for 401 errors.
func UnauthorizedResponse(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(w, r, domain.Errorf(domain.EUNAUTHORIZED, "", "Unauthorized: No token provided"))
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	json.NewEncoder(w).Encode(v)
}

// DecodeJSON decodes the request body into dst. Malformed bodies are
// EINVALID and bodies over the MaxBodySize limit are ETOOLARGE.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return domain.Errorf(domain.EINVALID, "", "Request body is required")
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.Errorf(domain.ETOOLARGE, "", "Request body too large")
		}
		return domain.WrapError(err, domain.EINVALID, "", "Invalid request body")
	}
	return nil
}
