// Package api implements the JSON endpoints under /api.
package api

import (
	"net/http"

	"github.com/dukerupert/haat/internal/domain"
	"github.com/dukerupert/haat/internal/handler"
)

// currentUser returns the authenticated caller. Routes that use it sit
// behind middleware.RequireAuth, so a missing user is a wiring mistake
// reported as 401 rather than a panic.
func currentUser(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	user := domain.UserFromContext(r.Context())
	if user == nil {
		handler.UnauthorizedResponse(w, r)
		return nil, false
	}
	return user, true
}

// message is the body of responses that only confirm an action.
type message struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
