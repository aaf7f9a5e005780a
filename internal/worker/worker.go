package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/haat/internal/jobs"
	"github.com/dukerupert/haat/internal/repository"
	"github.com/dukerupert/haat/internal/telemetry"
)

// Config tunes a Worker. Zero values take the defaults set in NewWorker.
type Config struct {
	WorkerID       string        // recorded on claimed jobs; random when empty
	PollInterval   time.Duration // 1s
	MaxConcurrency int           // 5
	Queue          string        // "" claims from every queue

	// ReconcileInterval is how often a payment reconciliation job is
	// scheduled. Zero disables scheduling.
	ReconcileInterval time.Duration

	// ReconcileOlderThan skips orders younger than this; their payment
	// signal may still be in flight.
	ReconcileOlderThan time.Duration

	// ReconcileExpireAfter marks orders with no captured payment as failed
	// once they are this old.
	ReconcileExpireAfter time.Duration

	// ShutdownTimeout bounds the wait for in-flight jobs on shutdown.
	ShutdownTimeout time.Duration
}

// Worker claims jobs from the jobs table and runs them: customer emails
// and the periodic payment reconciliation sweep.
type Worker struct {
	config     Config
	queries    repository.Querier
	emails     jobs.EmailSender
	reconciler jobs.PaymentReconciler
	metrics    *telemetry.BusinessMetrics
	logger     *slog.Logger

	inflight sync.WaitGroup
}

func NewWorker(
	queries repository.Querier,
	emails jobs.EmailSender,
	reconciler jobs.PaymentReconciler,
	metrics *telemetry.BusinessMetrics,
	config Config,
	logger *slog.Logger,
) *Worker {
	if config.WorkerID == "" {
		config.WorkerID = "worker-" + uuid.NewString()[:8]
	}
	if config.PollInterval == 0 {
		config.PollInterval = 1 * time.Second
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 5
	}
	if config.ReconcileOlderThan == 0 {
		config.ReconcileOlderThan = 15 * time.Minute
	}
	if config.ReconcileExpireAfter == 0 {
		config.ReconcileExpireAfter = 24 * time.Hour
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 30 * time.Second
	}

	return &Worker{
		config:     config,
		queries:    queries,
		emails:     emails,
		reconciler: reconciler,
		metrics:    metrics,
		logger:     logger.With("worker_id", config.WorkerID),
	}
}

// Start polls for jobs until ctx is cancelled, then waits up to
// ShutdownTimeout for running jobs to finish.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("worker starting",
		"queue", w.config.Queue,
		"poll_interval", w.config.PollInterval,
		"max_concurrency", w.config.MaxConcurrency,
		"reconcile_interval", w.config.ReconcileInterval,
	)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	var reconcileC <-chan time.Time
	if w.config.ReconcileInterval > 0 {
		reconcileTicker := time.NewTicker(w.config.ReconcileInterval)
		defer reconcileTicker.Stop()
		reconcileC = reconcileTicker.C
		w.scheduleReconcile(ctx)
	}

	sem := make(chan struct{}, w.config.MaxConcurrency)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker shutting down")
			w.waitInflight()
			return ctx.Err()

		case <-reconcileC:
			w.scheduleReconcile(ctx)

		case <-ticker.C:
			select {
			case sem <- struct{}{}:
				w.inflight.Add(1)
				go func() {
					defer w.inflight.Done()
					defer func() { <-sem }()
					w.ProcessNext(ctx)
				}()
			default:
				// At max concurrency, skip this poll
			}
		}
	}
}

func (w *Worker) waitInflight() {
	done := make(chan struct{})
	go func() {
		w.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(w.config.ShutdownTimeout):
		w.logger.Warn("shutdown timeout reached with jobs still running")
	}
}

// scheduleReconcile enqueues a reconciliation job unless one is already
// queued or running.
func (w *Worker) scheduleReconcile(ctx context.Context) {
	if w.reconciler == nil {
		return
	}
	added, err := jobs.EnqueueReconcilePayments(ctx, w.queries, jobs.ReconcilePaymentsPayload{
		OlderThanSeconds:   int64(w.config.ReconcileOlderThan / time.Second),
		ExpireAfterSeconds: int64(w.config.ReconcileExpireAfter / time.Second),
	})
	if err != nil {
		w.logger.Error("failed to schedule payment reconciliation", "error", err)
		return
	}
	if added {
		w.metrics.RecordJobEnqueued(jobs.JobTypeReconcilePayments)
		w.logger.Debug("payment reconciliation scheduled")
	}
}

// ProcessNext claims and processes a single job. It reports whether a job
// was claimed.
func (w *Worker) ProcessNext(ctx context.Context) bool {
	job, err := w.queries.ClaimNextJob(ctx, repository.ClaimNextJobParams{
		WorkerID: repository.Text(w.config.WorkerID),
		Queue:    w.config.Queue,
	})
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			w.logger.Error("failed to claim job", "error", err)
		}
		return false
	}

	logger := w.logger.With(
		"job_id", repository.FromUUID(job.ID),
		"job_type", job.JobType,
		"retry_count", job.RetryCount,
	)
	logger.Info("processing job")

	start := time.Now()
	err = w.processJob(ctx, &job, logger)
	w.metrics.RecordJobResult(job.JobType, time.Since(start).Seconds(), err)

	if err != nil {
		logger.Error("job failed", "error", err)
		// Retries or marks as failed based on retry count
		failed, ferr := w.queries.FailJob(ctx, repository.FailJobParams{
			ID:           job.ID,
			ErrorMessage: repository.Text(err.Error()),
		})
		if ferr != nil {
			logger.Error("failed to record job failure", "error", ferr)
		} else if failed.Status == "failed" {
			logger.Warn("job exhausted retries", "max_retries", failed.MaxRetries)
		}
		return true
	}

	logger.Info("job completed", "duration", time.Since(start))
	if err := w.queries.CompleteJob(ctx, job.ID); err != nil {
		logger.Error("failed to mark job complete", "error", err)
	}
	return true
}

// processJob dispatches job by type under the job's own timeout.
func (w *Worker) processJob(ctx context.Context, job *repository.Job, logger *slog.Logger) error {
	timeout := time.Duration(job.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	jobCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch {
	case jobs.IsEmailJob(job.JobType):
		if w.emails == nil {
			return fmt.Errorf("no email sender configured for %s", job.JobType)
		}
		err := jobs.ProcessEmailJob(jobCtx, job, w.emails)
		w.metrics.RecordEmail(job.JobType, err)
		return err

	case jobs.IsPaymentsJob(job.JobType):
		if w.reconciler == nil {
			return fmt.Errorf("no payment reconciler configured for %s", job.JobType)
		}
		summary, err := jobs.ProcessReconcileJob(jobCtx, job, w.reconciler)
		if err != nil {
			return err
		}
		logger.Info("payment reconciliation finished",
			"checked", summary.Checked,
			"confirmed", summary.Confirmed,
			"expired", summary.Expired,
			"still_pending", summary.StillPending,
			"errors", summary.Errors,
		)
		return nil
	}

	return fmt.Errorf("unknown job type: %s", job.JobType)
}
