package repotest

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/haat/internal/repository"
)

func TestStore_DecrementIsConditional(t *testing.T) {
	s := New()
	p := s.AddProduct(repository.Product{Name: "Kashmiri Chilli"})
	v := s.AddVariant(p, "Whole")
	w := s.AddWeight(v, SeedWeight{Value: "250", Unit: "g", PricePaise: 11000, Quantity: 3})

	n, err := s.DecrementWeightStock(context.Background(), repository.DecrementWeightStockParams{
		ID: repository.UUID(w), VariantID: repository.UUID(v), Quantity: 5,
	})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, int32(3), s.Quantity(w))

	n, err = s.DecrementWeightStock(context.Background(), repository.DecrementWeightStockParams{
		ID: repository.UUID(w), VariantID: repository.UUID(v), Quantity: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, int32(0), s.Quantity(w))
}

func TestStore_ExecTxRollsBack(t *testing.T) {
	s := New()
	p := s.AddProduct(repository.Product{Name: "Turmeric"})
	v := s.AddVariant(p, "Powder")
	w := s.AddWeight(v, SeedWeight{Value: "100", Unit: "g", PricePaise: 5000, Quantity: 10})

	boom := errors.New("boom")
	err := s.ExecTx(context.Background(), func(q repository.Querier) error {
		_, err := q.DecrementWeightStock(context.Background(), repository.DecrementWeightStockParams{
			ID: repository.UUID(w), VariantID: repository.UUID(v), Quantity: 4,
		})
		require.NoError(t, err)
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(10), s.Quantity(w))
	assert.Equal(t, 1, s.Rollbacks)
	assert.Equal(t, 0, s.Commits)
}

func TestStore_FailJobBacksOff(t *testing.T) {
	ctx := context.Background()
	s := New()
	job, err := s.EnqueueJob(ctx, repository.EnqueueJobParams{JobType: "email:order_confirmation", Queue: "email", MaxRetries: 2})
	require.NoError(t, err)

	claimed, err := s.ClaimNextJob(ctx, repository.ClaimNextJobParams{WorkerID: repository.Text("w1"), Queue: "email"})
	require.NoError(t, err)
	assert.Equal(t, job.ID, claimed.ID)
	assert.Equal(t, "processing", claimed.Status)

	failed, err := s.FailJob(ctx, repository.FailJobParams{ID: job.ID, ErrorMessage: repository.Text("smtp down")})
	require.NoError(t, err)
	assert.Equal(t, "pending", failed.Status)
	assert.True(t, failed.ScheduledAt.Time.After(claimed.StartedAt.Time))

	// Backed off, so nothing is due yet.
	_, err = s.ClaimNextJob(ctx, repository.ClaimNextJobParams{WorkerID: repository.Text("w1")})
	assert.ErrorIs(t, err, pgx.ErrNoRows)

	failed, err = s.FailJob(ctx, repository.FailJobParams{ID: job.ID, ErrorMessage: repository.Text("smtp down")})
	require.NoError(t, err)
	assert.Equal(t, "failed", failed.Status)
	assert.True(t, failed.CompletedAt.Valid)
}

func TestStore_UpdateOrderStatusGuardsFromStatus(t *testing.T) {
	ctx := context.Background()
	s := New()
	o := s.PutOrder(repository.Order{Status: "pending", PaymentStatus: "pending"})

	_, err := s.UpdateOrderStatus(ctx, repository.UpdateOrderStatusParams{ID: o.ID, Status: "delivered", FromStatus: "shipped"})
	assert.ErrorIs(t, err, pgx.ErrNoRows)

	updated, err := s.UpdateOrderStatus(ctx, repository.UpdateOrderStatusParams{ID: o.ID, Status: "cancelled", FromStatus: "pending"})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", updated.Status)
	assert.True(t, updated.CancelledAt.Valid)

	_, err = s.GetOrder(ctx, pgtype.UUID{})
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}
