// Package queue implements the durable transcription job queue. Jobs live
// in a Postgres table that owns scheduling, locking, and attempt state;
// RabbitMQ carries a best-effort wake-up nudge so workers pick up fresh
// jobs without waiting for the next poll tick.
package queue

import (
	"context"
	"time"
)

// Job status constants. Completed jobs are deleted rather than kept, so
// there is no completed status.
const (
	JobStatusPending = "pending"
	JobStatusRunning = "running"
	JobStatusFailed  = "failed"
)

// JobPayload is the opaque payload of a transcription job.
type JobPayload struct {
	RecordID string `json:"record_id"`
	AudioURL string `json:"audio_url"`
}

// Job is one queued unit of work together with its queue-managed metadata.
type Job struct {
	ID          string
	Type        string
	Payload     JobPayload
	Status      string
	ScheduledAt time.Time
	LockedUntil time.Time
	Attempts    int
	MaxAttempts int
	BaseDelay   time.Duration
	LastError   string
}

// RetryPolicy controls rescheduling of failed jobs.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy matches the submission contract: three attempts with
// a 30 second base delay doubling per retry.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   30 * time.Second,
	}
}

// NextDelay returns the backoff before the retry following the given
// failed attempt (1-based): base, 2*base, 4*base, ...
func NextDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base * time.Duration(uint(1)<<uint(attempt-1))
}

// Enqueuer is the producer side of the queue, used by the submission
// service.
type Enqueuer interface {
	// Enqueue schedules a job to run now under the given retry policy.
	Enqueue(ctx context.Context, payload JobPayload, policy RetryPolicy) (*Job, error)
}

// Queue is the full contract between the durable store and the worker.
// Delivery is at-least-once: a job claimed by a crashed worker becomes
// eligible again once its lock expires, so job bodies must be idempotent.
type Queue interface {
	Enqueuer

	// Poll claims up to limit due jobs for workerID, locking each one
	// until the lock lifetime elapses.
	Poll(ctx context.Context, workerID string, limit int) ([]*Job, error)

	// Complete removes a successfully processed job from the queue.
	Complete(ctx context.Context, jobID string) error

	// Fail records a failed attempt: the job is rescheduled with
	// exponential backoff until its attempts are exhausted, then retained
	// in a failed state for inspection.
	Fail(ctx context.Context, job *Job, cause error) error
}
