package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/dukerupert/haat/internal/domain"
)

// RequestIDHeader carries the correlation ID in both directions.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLength = 128

type loggerKey struct{}

// RequestID tags every request with a correlation ID. An ID forwarded by
// the load balancer is reused unless it is oversized.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(domain.NewContextWithRequestID(r.Context(), id)))
	})
}

// GetRequestID returns the correlation ID assigned by RequestID.
func GetRequestID(ctx context.Context) string {
	return domain.RequestIDFromContext(ctx)
}

// WithRequestLogger derives a per-request logger from base, tagged with the
// method, path and request ID. RequireAuth later adds user_id, so this must
// sit after RequestID in the chain.
func WithRequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attrs := []any{slog.String("method", r.Method), slog.String("path", r.URL.Path)}
			if id := GetRequestID(r.Context()); id != "" {
				attrs = append(attrs, slog.String("request_id", id))
			}
			ctx := WithLogger(r.Context(), base.With(attrs...))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithLogger stores logger on ctx for GetLogger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger returns the request logger, else fallback, else slog.Default().
func GetLogger(ctx context.Context, fallback ...*slog.Logger) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	for _, l := range fallback {
		if l != nil {
			return l
		}
	}
	return slog.Default()
}
