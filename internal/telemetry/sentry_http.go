package telemetry

import (
	"context"
	"net/http"

	"github.com/getsentry/sentry-go"
)

// SentryMiddleware gives every request its own hub carrying the request
// data. Panics are left to the recovery middleware, which reports them.
func SentryMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsEnabled() {
				next.ServeHTTP(w, r)
				return
			}
			hub := sentry.CurrentHub().Clone()
			hub.Scope().SetRequest(r)
			next.ServeHTTP(w, r.WithContext(sentry.SetHubOnContext(r.Context(), hub)))
		})
	}
}

// UserInfo identifies the caller on reports.
type UserInfo struct {
	ID    string
	Email string
}

// UserContextExtractor returns the caller for ctx, or nil when anonymous.
type UserContextExtractor func(ctx context.Context) *UserInfo

// SentryContextMiddleware tags the request hub with the caller returned by
// user. It belongs after authentication.
func SentryContextMiddleware(user UserContextExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hub := sentry.GetHubFromContext(r.Context())
			if hub != nil && user != nil {
				if u := user(r.Context()); u != nil {
					hub.Scope().SetUser(sentry.User{ID: u.ID, Email: u.Email})
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HTTPTransport records outbound gateway calls as spans on the caller's
// transaction.
type HTTPTransport struct {
	Transport http.RoundTripper
}

func (t *HTTPTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	if !IsEnabled() {
		return base.RoundTrip(req)
	}

	span := sentry.StartSpan(req.Context(), "http.client")
	span.Description = req.Method + " " + req.URL.Host + req.URL.Path
	defer span.Finish()

	resp, err := base.RoundTrip(req)
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		return nil, err
	}
	span.SetData("http.status_code", resp.StatusCode)
	if resp.StatusCode >= http.StatusInternalServerError {
		span.Status = sentry.SpanStatusInternalError
	}
	return resp, nil
}
