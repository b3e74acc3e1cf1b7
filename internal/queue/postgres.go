package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Notifier publishes wake-up nudges after an enqueue. Satisfied by
// *rabbitmq.Client.
type Notifier interface {
	Publish(ctx context.Context, body []byte, contentType string) error
}

// Options configures a PostgresQueue.
type Options struct {
	JobType      string
	LockLifetime time.Duration
}

// PostgresQueue is the durable Queue implementation. All scheduling and
// locking state lives in the transcription_jobs table; claims use
// FOR UPDATE SKIP LOCKED so concurrent workers never double-claim.
type PostgresQueue struct {
	db           *sqlx.DB
	logger       *slog.Logger
	notifier     Notifier
	jobType      string
	lockLifetime time.Duration
}

// NewPostgresQueue creates a queue over db. notifier may be nil, in which
// case jobs are picked up by polling alone.
func NewPostgresQueue(db *sqlx.DB, notifier Notifier, opts Options, logger *slog.Logger) *PostgresQueue {
	jobType := opts.JobType
	if jobType == "" {
		jobType = "transcription:process"
	}

	lockLifetime := opts.LockLifetime
	if lockLifetime <= 0 {
		lockLifetime = time.Hour
	}

	return &PostgresQueue{
		db:           db,
		logger:       logger,
		notifier:     notifier,
		jobType:      jobType,
		lockLifetime: lockLifetime,
	}
}

type jobRow struct {
	ID          string    `db:"id"`
	JobType     string    `db:"job_type"`
	Payload     []byte    `db:"payload"`
	Status      string    `db:"status"`
	ScheduledAt time.Time `db:"scheduled_at"`
	LockedUntil time.Time `db:"locked_until"`
	Attempts    int       `db:"attempts"`
	MaxAttempts int       `db:"max_attempts"`
	BaseDelayMs int64     `db:"base_delay_ms"`
	LastError   string    `db:"last_error"`
}

func (r *jobRow) toJob() (*Job, error) {
	var payload JobPayload
	if err := json.Unmarshal(r.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode job payload: %w", err)
	}

	return &Job{
		ID:          r.ID,
		Type:        r.JobType,
		Payload:     payload,
		Status:      r.Status,
		ScheduledAt: r.ScheduledAt,
		LockedUntil: r.LockedUntil,
		Attempts:    r.Attempts,
		MaxAttempts: r.MaxAttempts,
		BaseDelay:   time.Duration(r.BaseDelayMs) * time.Millisecond,
		LastError:   r.LastError,
	}, nil
}

// Enqueue inserts a run-now job and publishes a wake-up nudge. The nudge
// is best-effort: the insert is the durable part, and a lost nudge only
// delays pickup until the next poll tick.
func (q *PostgresQueue) Enqueue(ctx context.Context, payload JobPayload, policy RetryPolicy) (*Job, error) {
	if policy.MaxAttempts <= 0 || policy.BaseDelay <= 0 {
		policy = DefaultRetryPolicy()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode job payload: %w", err)
	}

	job := &Job{
		ID:          uuid.New().String(),
		Type:        q.jobType,
		Payload:     payload,
		Status:      JobStatusPending,
		ScheduledAt: time.Now(),
		MaxAttempts: policy.MaxAttempts,
		BaseDelay:   policy.BaseDelay,
	}

	query := `
		INSERT INTO transcription_jobs (
			id, job_type, payload, status, scheduled_at,
			attempts, max_attempts, base_delay_ms, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, 0, $6, $7, NOW(), NOW())
	`

	_, err = q.db.ExecContext(ctx, query,
		job.ID,
		job.Type,
		body,
		job.Status,
		job.ScheduledAt,
		job.MaxAttempts,
		job.BaseDelay.Milliseconds(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	q.logger.Info("Enqueued transcription job",
		slog.String("job_id", job.ID),
		slog.String("record_id", payload.RecordID),
	)

	if q.notifier != nil {
		nudge, _ := json.Marshal(map[string]string{"job_id": job.ID})
		if err := q.notifier.Publish(ctx, nudge, "application/json"); err != nil {
			q.logger.Warn("Failed to publish job nudge, job will be picked up by polling",
				slog.String("job_id", job.ID),
				slog.Any("error", err),
			)
		}
	}

	return job, nil
}

// Poll claims up to limit due jobs: pending jobs whose schedule has
// arrived, plus running jobs whose lock expired (their worker is presumed
// dead). Claimed jobs are locked until now + lock lifetime.
func (q *PostgresQueue) Poll(ctx context.Context, workerID string, limit int) ([]*Job, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := `
		UPDATE transcription_jobs
		SET status = $1,
		    locked_by = $2,
		    locked_until = $3,
		    updated_at = NOW()
		WHERE id IN (
			SELECT id
			FROM transcription_jobs
			WHERE job_type = $4
			  AND (
			        (status = $5 AND scheduled_at <= NOW())
			     OR (status = $1 AND locked_until < NOW())
			  )
			ORDER BY scheduled_at
			LIMIT $6
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, job_type, payload, status, scheduled_at, locked_until,
		          attempts, max_attempts, base_delay_ms, last_error
	`

	lockedUntil := time.Now().Add(q.lockLifetime)

	var rows []jobRow
	err := q.db.SelectContext(ctx, &rows, query,
		JobStatusRunning,
		workerID,
		lockedUntil,
		q.jobType,
		JobStatusPending,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to poll jobs: %w", err)
	}

	jobs := make([]*Job, 0, len(rows))
	for i := range rows {
		job, err := rows[i].toJob()
		if err != nil {
			// A job whose payload cannot be decoded can never run; retain
			// it as failed instead of redelivering it forever.
			q.logger.Error("Dropping job with undecodable payload",
				slog.String("job_id", rows[i].ID),
				slog.Any("error", err),
			)
			q.markFailed(ctx, rows[i].ID, rows[i].Attempts+1, err.Error())
			continue
		}
		jobs = append(jobs, job)
	}

	return jobs, nil
}

// Complete deletes a finished job. Successful jobs are not retained.
func (q *PostgresQueue) Complete(ctx context.Context, jobID string) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM transcription_jobs WHERE id = $1`, jobID); err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	q.logger.Debug("Job completed and pruned",
		slog.String("job_id", jobID),
	)

	return nil
}

// Fail records a failed attempt. While attempts remain the job returns to
// pending with exponential backoff; once exhausted it is retained in a
// failed state as an audit trail (the record's own failed status is the
// client-visible signal).
func (q *PostgresQueue) Fail(ctx context.Context, job *Job, cause error) error {
	attempts := job.Attempts + 1
	lastError := ""
	if cause != nil {
		lastError = cause.Error()
	}

	if attempts >= job.MaxAttempts {
		q.logger.Warn("Job exhausted attempts, retaining as failed",
			slog.String("job_id", job.ID),
			slog.Int("attempts", attempts),
			slog.Int("max_attempts", job.MaxAttempts),
		)
		return q.markFailed(ctx, job.ID, attempts, lastError)
	}

	delay := NextDelay(job.BaseDelay, attempts)
	scheduledAt := time.Now().Add(delay)

	query := `
		UPDATE transcription_jobs
		SET status = $1,
		    attempts = $2,
		    scheduled_at = $3,
		    locked_by = NULL,
		    locked_until = NULL,
		    last_error = $4,
		    updated_at = NOW()
		WHERE id = $5
	`

	_, err := q.db.ExecContext(ctx, query, JobStatusPending, attempts, scheduledAt, lastError, job.ID)
	if err != nil {
		return fmt.Errorf("failed to reschedule job: %w", err)
	}

	q.logger.Info("Job rescheduled with backoff",
		slog.String("job_id", job.ID),
		slog.Int("attempt", attempts),
		slog.Duration("delay", delay),
	)

	return nil
}

func (q *PostgresQueue) markFailed(ctx context.Context, jobID string, attempts int, lastError string) error {
	query := `
		UPDATE transcription_jobs
		SET status = $1,
		    attempts = $2,
		    locked_by = NULL,
		    locked_until = NULL,
		    last_error = $3,
		    updated_at = NOW()
		WHERE id = $4
	`

	if _, err := q.db.ExecContext(ctx, query, JobStatusFailed, attempts, lastError, jobID); err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}

	return nil
}
