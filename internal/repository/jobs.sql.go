package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const jobColumns = `id, job_type, queue, payload, status, priority, retry_count, max_retries,
    scheduled_at, timeout_seconds, worker_id, error_message, started_at, completed_at, created_at`

func scanJob(row interface{ Scan(...any) error }) (Job, error) {
	var i Job
	err := row.Scan(
		&i.ID,
		&i.JobType,
		&i.Queue,
		&i.Payload,
		&i.Status,
		&i.Priority,
		&i.RetryCount,
		&i.MaxRetries,
		&i.ScheduledAt,
		&i.TimeoutSeconds,
		&i.WorkerID,
		&i.ErrorMessage,
		&i.StartedAt,
		&i.CompletedAt,
		&i.CreatedAt,
	)
	return i, err
}

const enqueueJob = `-- name: EnqueueJob :one
INSERT INTO jobs (job_type, queue, payload, priority, max_retries, scheduled_at, timeout_seconds)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + jobColumns + `
`

type EnqueueJobParams struct {
	JobType        string
	Queue          string
	Payload        []byte
	Priority       int32
	MaxRetries     int32
	ScheduledAt    pgtype.Timestamptz
	TimeoutSeconds int32
}

func (q *Queries) EnqueueJob(ctx context.Context, arg EnqueueJobParams) (Job, error) {
	row := q.db.QueryRow(ctx, enqueueJob,
		arg.JobType,
		arg.Queue,
		arg.Payload,
		arg.Priority,
		arg.MaxRetries,
		arg.ScheduledAt,
		arg.TimeoutSeconds,
	)
	return scanJob(row)
}

const claimNextJob = `-- name: ClaimNextJob :one
UPDATE jobs
SET status = 'processing', worker_id = $1, started_at = NOW()
WHERE id = (
    SELECT id FROM jobs
    WHERE status = 'pending'
      AND scheduled_at <= NOW()
      AND ($2::text = '' OR queue = $2)
    ORDER BY priority DESC, scheduled_at
    LIMIT 1
    FOR UPDATE SKIP LOCKED
)
RETURNING ` + jobColumns + `
`

type ClaimNextJobParams struct {
	WorkerID pgtype.Text
	Queue    string
}

// ClaimNextJob takes the highest-priority due job. Rows locked by other
// workers are skipped, so each job is claimed once.
func (q *Queries) ClaimNextJob(ctx context.Context, arg ClaimNextJobParams) (Job, error) {
	return scanJob(q.db.QueryRow(ctx, claimNextJob, arg.WorkerID, arg.Queue))
}

const completeJob = `-- name: CompleteJob :exec
UPDATE jobs SET status = 'completed', completed_at = NOW() WHERE id = $1
`

func (q *Queries) CompleteJob(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, completeJob, id)
	return err
}

const failJob = `-- name: FailJob :one
UPDATE jobs
SET retry_count = retry_count + 1,
    error_message = $2,
    status = CASE WHEN retry_count + 1 < max_retries THEN 'pending' ELSE 'failed' END,
    scheduled_at = CASE
        WHEN retry_count + 1 < max_retries
        THEN NOW() + make_interval(secs => 30 * power(2, retry_count))
        ELSE scheduled_at
    END,
    worker_id = NULL,
    completed_at = CASE WHEN retry_count + 1 < max_retries THEN NULL ELSE NOW() END
WHERE id = $1
RETURNING ` + jobColumns + `
`

type FailJobParams struct {
	ID           pgtype.UUID
	ErrorMessage pgtype.Text
}

// FailJob records a failed attempt. The job is rescheduled with exponential
// backoff until max_retries is reached.
func (q *Queries) FailJob(ctx context.Context, arg FailJobParams) (Job, error) {
	return scanJob(q.db.QueryRow(ctx, failJob, arg.ID, arg.ErrorMessage))
}

const countActiveJobsByType = `-- name: CountActiveJobsByType :one
SELECT COUNT(*) FROM jobs WHERE job_type = $1 AND status IN ('pending', 'processing')
`

func (q *Queries) CountActiveJobsByType(ctx context.Context, jobType string) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countActiveJobsByType, jobType).Scan(&count)
	return count, err
}
