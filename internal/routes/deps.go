package routes

import (
	"net/http"

	"github.com/dukerupert/haat/internal/auth"
	"github.com/dukerupert/haat/internal/handler/api"
	"github.com/dukerupert/haat/internal/middleware"
)

// APIDeps contains dependencies for the JSON API routes
type APIDeps struct {
	// Verifier resolves bearer tokens for authenticated routes
	Verifier auth.Verifier

	// GeneralLimiter applies to every API route; StrictLimiter additionally
	// guards the OTP endpoints. Either may be nil to disable limiting.
	GeneralLimiter middleware.Limiter
	StrictLimiter  middleware.Limiter

	HealthHandler   *api.HealthHandler
	AuthHandler     *api.AuthHandler
	ProductHandler  *api.ProductHandler
	CartHandler     *api.CartHandler
	WishlistHandler *api.WishlistHandler
	OrderHandler    *api.OrderHandler

	// MetricsHandler serves /metrics when set
	MetricsHandler http.Handler
}

// WebhookDeps contains dependencies for webhook routes
type WebhookDeps struct {
	// Handlers maps a provider name ("razorpay", "stripe") to its handler.
	// Each is served at /webhooks/{provider}.
	Handlers map[string]http.HandlerFunc
}
