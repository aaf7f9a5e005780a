package middleware

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/haat/internal/auth"
	"github.com/dukerupert/haat/internal/domain"
)

// RequireAuth verifies the bearer token with v and stores the caller in the
// request context. Requests without a valid token get 401.
func RequireAuth(v auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.BearerToken(r.Header.Get("Authorization"))
			if token == "" {
				respondUnauthorized(w, r, auth.ErrNoToken)
				return
			}

			user, err := v.Verify(r.Context(), token)
			if err != nil {
				if domain.ErrorCode(err) == domain.EINTERNAL {
					writeError(w, r, err)
					return
				}
				respondUnauthorized(w, r, err)
				return
			}

			ctx := domain.NewContextWithUser(r.Context(), user)
			logger := GetLogger(ctx).With(slog.String("user_id", user.ID.String()))
			ctx = WithLogger(ctx, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects callers that are not administrators with 403.
// It must run after RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := domain.UserFromContext(r.Context())
		if user == nil {
			respondUnauthorized(w, r, auth.ErrNoToken)
			return
		}

		if !user.IsAdmin {
			GetLogger(r.Context()).Warn("admin access denied", "uid", user.UID)
			writeError(w, r, domain.Forbidden("", "Access denied: Admin privileges required"))
			return
		}

		next.ServeHTTP(w, r)
	})
}
