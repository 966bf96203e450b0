package queue

import (
	"context"
	"errors"
	"time"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusRetryable Status = "retryable"
	StatusTerminal  Status = "terminal"
	StatusCancelled Status = "cancelled"
)

// ErrDuplicateJob signals an enqueue whose idempotency key matches a job that
// is still queued or active. Callers treat it as success.
var ErrDuplicateJob = errors.New("job with idempotency key already pending")

// ErrNotCancellable rejects a cancel on a job that already started or
// finished.
var ErrNotCancellable = errors.New("job is not in a cancellable state")

// ErrUnknownJob signals a lookup or cancel for an id the broker never issued.
var ErrUnknownJob = errors.New("unknown job id")

// Job is one unit of queued work. Payload is opaque to the broker.
type Job struct {
	ID             string
	Queue          string
	IdempotencyKey string
	Payload        []byte
	Status         Status
	Attempts       int
	LastError      string
	EnqueuedAt     time.Time
}

// Handler processes a job. A nil return completes the job; an error either
// requeues it with backoff or parks it terminal, decided by the retry policy
// and the error's retryability.
type Handler func(ctx context.Context, job *Job) error

// RetryPolicy bounds how a failing job is retried.
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// Delay returns the backoff before the given attempt number (1-based,
// counting the attempt that just failed). Doubles per attempt, capped.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := p.BaseBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

// retryable mirrors the error contract providers expose: errors that know
// whether waiting helps report it themselves.
type retryable interface {
	Retryable() bool
}

// Broker accepts jobs and dispatches them to per-queue worker pools.
type Broker interface {
	// Enqueue submits a job to the named queue. An empty idempotency key
	// disables deduplication. Returns the job id; for a dedup hit it returns
	// the pending job's id together with ErrDuplicateJob.
	Enqueue(queue, idempotencyKey string, payload []byte) (string, error)

	// Cancel removes a job that has not started. Active or finished jobs
	// return ErrNotCancellable.
	Cancel(jobID string) error

	// Job returns a snapshot of the job's current state.
	Job(jobID string) (*Job, error)

	// Subscribe registers the handler and worker count for a queue. Must be
	// called before Start.
	Subscribe(queue string, workers int, handler Handler)

	// Start launches the worker pools.
	Start(ctx context.Context)

	// Stop drains in-flight work and shuts the pools down.
	Stop()
}
