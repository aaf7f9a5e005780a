package middleware

import (
	"net/http"
	"time"

	"github.com/dukerupert/haat/internal/domain"
)

// Size and time bounds for API traffic.
const (
	KB = 1024
	MB = 1024 * KB

	DefaultMaxBodySize = 1 * MB
	WebhookMaxBodySize = 256 * KB

	DefaultTimeout = 30 * time.Second
)

// timeoutBody is the error envelope written when a handler overruns.
const timeoutBody = `{"error":{"code":"timeout","message":"Request timeout"}}`

// MaxBodySize rejects requests that declare a body over limit with 413 and
// caps the rest with http.MaxBytesReader, so decoders see a
// *http.MaxBytesError once limit bytes have been read.
func MaxBodySize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				writeError(w, r, domain.Errorf(domain.ETOOLARGE, "", "Request body too large"))
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Timeout cancels the request context after d and answers 503 with the
// JSON error envelope if the handler has not responded by then.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		th := http.TimeoutHandler(next, d, timeoutBody)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// TimeoutHandler writes its body without a content type; handlers
			// that answer in time overwrite this with their own.
			w.Header().Set("Content-Type", "application/json")
			th.ServeHTTP(w, r)
		})
	}
}
