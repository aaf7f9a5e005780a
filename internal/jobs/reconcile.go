package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukerupert/haat/internal/domain"
	"github.com/dukerupert/haat/internal/repository"
)

// Job type constants for payment maintenance jobs
const (
	JobTypeReconcilePayments = "payments:reconcile"
)

// QueuePayments is the queue reconciliation jobs are placed on.
const QueuePayments = "payments"

// ReconcilePaymentsPayload represents the payload for a reconciliation job.
// Durations are in seconds so the payload stays readable in the jobs table.
type ReconcilePaymentsPayload struct {
	OlderThanSeconds   int64 `json:"older_than_seconds"`
	ExpireAfterSeconds int64 `json:"expire_after_seconds"`
}

// PaymentReconciler settles online orders whose payment signal never arrived.
type PaymentReconciler interface {
	ReconcilePendingPayments(ctx context.Context, olderThan, expireAfter time.Duration) (*domain.ReconcileSummary, error)
}

// EnqueueReconcilePayments enqueues a reconciliation job unless one is
// already pending or running. It reports whether a job was added.
func EnqueueReconcilePayments(ctx context.Context, q repository.Querier, payload ReconcilePaymentsPayload) (bool, error) {
	active, err := q.CountActiveJobsByType(ctx, JobTypeReconcilePayments)
	if err != nil {
		return false, fmt.Errorf("failed to count reconcile jobs: %w", err)
	}
	if active > 0 {
		return false, nil
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("failed to marshal payload: %w", err)
	}

	_, err = q.EnqueueJob(ctx, repository.EnqueueJobParams{
		JobType:        JobTypeReconcilePayments,
		Queue:          QueuePayments,
		Payload:        payloadJSON,
		Priority:       10, // Low priority - maintenance task
		MaxRetries:     1,  // Runs again on the next tick anyway
		ScheduledAt:    repository.Timestamptz(time.Now()),
		TimeoutSeconds: 120,
	})
	if err != nil {
		return false, fmt.Errorf("failed to enqueue reconcile job: %w", err)
	}
	return true, nil
}

// ProcessReconcileJob runs one reconciliation pass.
func ProcessReconcileJob(ctx context.Context, job *repository.Job, reconciler PaymentReconciler) (*domain.ReconcileSummary, error) {
	if job.JobType != JobTypeReconcilePayments {
		return nil, fmt.Errorf("unknown payments job type: %s", job.JobType)
	}

	var payload ReconcilePaymentsPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reconcile payload: %w", err)
	}
	if payload.OlderThanSeconds <= 0 || payload.ExpireAfterSeconds <= 0 {
		return nil, fmt.Errorf("invalid reconcile payload: durations must be positive")
	}

	return reconciler.ReconcilePendingPayments(ctx,
		time.Duration(payload.OlderThanSeconds)*time.Second,
		time.Duration(payload.ExpireAfterSeconds)*time.Second,
	)
}

// IsPaymentsJob checks if a job type is a payments maintenance job
func IsPaymentsJob(jobType string) bool {
	return jobType == JobTypeReconcilePayments
}
