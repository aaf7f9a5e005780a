package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/haat/internal/domain"
	"github.com/dukerupert/haat/internal/repository"
	"github.com/dukerupert/haat/internal/repository/repotest"
)

func TestUserService_FindOrCreate(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	svc := NewUserService(store)

	identity := domain.Identity{UID: "fb-1", Email: "asha@example.com", Name: "Asha"}
	created, err := svc.FindOrCreate(ctx, identity)
	require.NoError(t, err)
	assert.Equal(t, "fb-1", created.UID)
	assert.Equal(t, domain.AuthMethodFirebase, created.AuthMethod)
	assert.False(t, created.IsAdmin)

	again, err := svc.FindOrCreate(ctx, identity)
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)

	byUID, err := svc.GetByUID(ctx, "fb-1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byUID.ID)

	_, err = svc.FindOrCreate(ctx, domain.Identity{})
	assert.Error(t, err)
}

func TestUserService_NotFound(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(repotest.New())

	_, err := svc.GetByUID(ctx, "nobody")
	assert.True(t, errors.Is(err, domain.ErrUserNotFound))

	_, err = svc.GetByPhone(ctx, "9876543210")
	assert.True(t, errors.Is(err, domain.ErrUserNotFound))

	_, err = svc.GetOTP(ctx, "9876543210")
	assert.True(t, errors.Is(err, domain.ErrOTPNotFound))
}

func TestUserService_OTPLifecycle(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	svc := NewUserService(store)

	user, err := svc.SaveOTP(ctx, "9876543210", "hash-1")
	require.NoError(t, err)
	assert.Equal(t, "phone-9876543210", user.UID)
	assert.Equal(t, domain.AuthMethodPhone, user.AuthMethod)

	record, err := svc.GetOTP(ctx, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, "hash-1", record.Hash)
	assert.WithinDuration(t, time.Now(), record.CreatedAt, time.Minute)

	// Resending replaces the code for the same user.
	resent, err := svc.SaveOTP(ctx, "9876543210", "hash-2")
	require.NoError(t, err)
	assert.Equal(t, user.ID, resent.ID)
	record, err = svc.GetOTP(ctx, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, "hash-2", record.Hash)

	require.NoError(t, svc.ClearOTP(ctx, "9876543210"))
	_, err = svc.GetOTP(ctx, "9876543210")
	assert.True(t, errors.Is(err, domain.ErrOTPNotFound))

	byPhone, err := svc.GetByPhone(ctx, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byPhone.ID)
}

func TestUserService_OTPForExistingFirebaseUser(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	existing := store.AddUser(repository.User{Uid: "fb-9", Name: "Ravi", Phone: repository.Text("9123456789")})
	svc := NewUserService(store)

	user, err := svc.SaveOTP(ctx, "9123456789", "hash")
	require.NoError(t, err)
	assert.Equal(t, repository.FromUUID(existing.ID), user.ID)
	assert.Equal(t, "fb-9", user.UID)
}
