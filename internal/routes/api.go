package routes

import (
	"context"

	"github.com/dukerupert/haat/internal/domain"
	"github.com/dukerupert/haat/internal/middleware"
	"github.com/dukerupert/haat/internal/router"
	"github.com/dukerupert/haat/internal/telemetry"
)

// RegisterAPIRoutes registers the JSON API under /api plus /health and
// /metrics.
func RegisterAPIRoutes(r *router.Router, deps APIDeps) {
	r.Get("/health", deps.HealthHandler.Health)
	if deps.MetricsHandler != nil {
		r.Handle("GET", "/metrics", deps.MetricsHandler)
	}

	api := r.Group(middleware.MaxBodySize(middleware.DefaultMaxBodySize))
	if deps.GeneralLimiter != nil {
		api = api.Group(middleware.RateLimit(deps.GeneralLimiter, "general"))
	}

	// Phone OTP login
	otp := api
	if deps.StrictLimiter != nil {
		otp = api.Group(middleware.RateLimit(deps.StrictLimiter, "otp"))
	}
	otp.Post("/api/auth/send-otp", deps.AuthHandler.SendOTP)
	otp.Post("/api/auth/verify-otp", deps.AuthHandler.VerifyOTP)
	api.Post("/api/auth/verify-token", deps.AuthHandler.VerifyToken)

	// Catalog
	api.Get("/api/products", deps.ProductHandler.List)
	api.Get("/api/products/{id}", deps.ProductHandler.Get)

	authed := api.Group(
		middleware.RequireAuth(deps.Verifier),
		telemetry.SentryContextMiddleware(sentryUser),
	)

	// Cart
	authed.Get("/api/cart", deps.CartHandler.List)
	authed.Post("/api/cart", deps.CartHandler.Add)
	authed.Put("/api/cart/{id}", deps.CartHandler.Update)
	authed.Delete("/api/cart/{id}", deps.CartHandler.Remove)
	authed.Delete("/api/cart", deps.CartHandler.Clear)

	// Wishlist
	authed.Get("/api/wishlist", deps.WishlistHandler.List)
	authed.Post("/api/wishlist", deps.WishlistHandler.Add)
	authed.Delete("/api/wishlist/{productId}", deps.WishlistHandler.Remove)

	// Orders
	authed.Post("/api/orders", deps.OrderHandler.Create)
	authed.Get("/api/orders", deps.OrderHandler.List)
	authed.Get("/api/orders/{id}", deps.OrderHandler.Get)
	authed.Post("/api/orders/{id}/complete-payment", deps.OrderHandler.CompletePayment)

	admin := authed.Group(middleware.RequireAdmin)
	admin.Patch("/api/orders/{id}/status", deps.OrderHandler.UpdateStatus)
	admin.Post("/api/orders/{id}/refund", deps.OrderHandler.Refund)
	admin.Get("/api/payments/{paymentId}", deps.OrderHandler.FetchPayment)
}

// sentryUser tags error reports with the authenticated caller.
func sentryUser(ctx context.Context) *telemetry.UserInfo {
	user := domain.UserFromContext(ctx)
	if user == nil {
		return nil
	}
	return &telemetry.UserInfo{ID: user.ID.String(), Email: user.Email}
}
