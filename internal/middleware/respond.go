package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/dukerupert/haat/internal/domain"
	"github.com/dukerupert/haat/internal/telemetry"
)

// writeError renders the same {"error": {...}} envelope as
// handler.ErrorResponse. It lives here because handler imports this
// package for GetLogger.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.ErrorCode(err)
	status := domain.HTTPStatus(code)

	logger := GetLogger(r.Context()).With("code", code, "status", status)
	if status >= http.StatusInternalServerError {
		logger.Error("middleware rejected request", "error", err)
		telemetry.CaptureErrorFromContext(r.Context(), err, map[string]interface{}{"path": r.URL.Path})
	} else {
		logger.Info("middleware rejected request", "error", err.Error())
	}

	body := map[string]any{"code": code, "message": domain.ErrorMessage(err)}
	if details := domain.ErrorDetails(err); details != nil {
		body["details"] = details
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"error": body})
}

// respondUnauthorized answers 401, substituting a generic message when err
// is not already an EUNAUTHORIZED error.
func respondUnauthorized(w http.ResponseWriter, r *http.Request, err error) {
	if domain.ErrorCode(err) != domain.EUNAUTHORIZED {
		err = domain.Errorf(domain.EUNAUTHORIZED, "", "Unauthorized: Invalid token")
	}
	writeError(w, r, err)
}
