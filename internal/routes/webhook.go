package routes

import (
	"github.com/dukerupert/haat/internal/middleware"
	"github.com/dukerupert/haat/internal/router"
)

// RegisterWebhookRoutes registers payment webhook routes.
//
// Webhook routes carry no authentication middleware. Each handler verifies
// the provider's signature over the raw body.
func RegisterWebhookRoutes(r *router.Router, deps WebhookDeps) {
	hooks := r.Group(middleware.MaxBodySize(middleware.WebhookMaxBodySize))
	for provider, h := range deps.Handlers {
		hooks.Post("/webhooks/"+provider, h)
	}
}
