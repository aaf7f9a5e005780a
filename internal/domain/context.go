package domain

import "context"

type contextKey int

const (
	userKey contextKey = iota
	requestIDKey
)

// NewContextWithUser attaches the authenticated caller to ctx.
func NewContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the caller stored by NewContextWithUser, or nil
// for anonymous requests.
func UserFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(userKey).(*User)
	return user
}

// NewContextWithRequestID attaches the request correlation ID to ctx.
func NewContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the correlation ID, or "" outside a request.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
