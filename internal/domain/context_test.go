package domain

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestUserContext(t *testing.T) {
	assert.Nil(t, UserFromContext(context.Background()))

	user := &User{ID: uuid.New(), UID: "firebase-uid", Phone: "9876543210", IsAdmin: true}
	ctx := NewContextWithUser(context.Background(), user)
	assert.Same(t, user, UserFromContext(ctx))

	// A request ID on the same context does not shadow the user.
	ctx = NewContextWithRequestID(ctx, "req-123")
	assert.Same(t, user, UserFromContext(ctx))
	assert.Equal(t, "req-123", RequestIDFromContext(ctx))
}

func TestRequestIDContext_Missing(t *testing.T) {
	assert.Empty(t, RequestIDFromContext(context.Background()))
}
