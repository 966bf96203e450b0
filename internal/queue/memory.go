package queue

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

const queueBuffer = 256

type subscription struct {
	workers int
	handler Handler
	jobs    chan string
}

// MemoryBroker is a channel-backed Broker with per-queue worker pools.
// Jobs live in process memory; restarts lose queued work, which is acceptable
// because upstream mail events are re-deliverable and enqueues are
// idempotent.
type MemoryBroker struct {
	policy RetryPolicy

	mu      sync.Mutex
	jobs    map[string]*Job
	pending map[string]string // idempotency key -> job id, queued or active only
	subs    map[string]*subscription
	timers  map[string]*time.Timer
	started bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewMemoryBroker(policy RetryPolicy) *MemoryBroker {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 3
	}
	if policy.BaseBackoff <= 0 {
		policy.BaseBackoff = 2 * time.Second
	}
	if policy.MaxBackoff <= 0 {
		policy.MaxBackoff = time.Minute
	}
	return &MemoryBroker{
		policy:  policy,
		jobs:    make(map[string]*Job),
		pending: make(map[string]string),
		subs:    make(map[string]*subscription),
		timers:  make(map[string]*time.Timer),
	}
}

func (b *MemoryBroker) Subscribe(queue string, workers int, handler Handler) {
	if workers <= 0 {
		workers = 1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[queue] = &subscription{
		workers: workers,
		handler: handler,
		jobs:    make(chan string, queueBuffer),
	}
}

func (b *MemoryBroker) Start(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return
	}
	b.started = true
	b.ctx, b.cancel = context.WithCancel(ctx)

	for name, sub := range b.subs {
		for i := 0; i < sub.workers; i++ {
			b.wg.Add(1)
			go b.worker(name, sub)
		}
		log.Printf("[Queue] Started %d workers for queue %s", sub.workers, name)
	}
}

func (b *MemoryBroker) Stop() {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return
	}
	b.cancel()
	for id, timer := range b.timers {
		timer.Stop()
		delete(b.timers, id)
	}
	b.mu.Unlock()

	b.wg.Wait()
	log.Printf("[Queue] All workers stopped")
}

func (b *MemoryBroker) Enqueue(queue, idempotencyKey string, payload []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subs[queue]
	if !ok {
		return "", errors.New("no subscription for queue " + queue)
	}

	if idempotencyKey != "" {
		if existingID, ok := b.pending[idempotencyKey]; ok {
			return existingID, ErrDuplicateJob
		}
	}

	job := &Job{
		ID:             uuid.New().String(),
		Queue:          queue,
		IdempotencyKey: idempotencyKey,
		Payload:        payload,
		Status:         StatusQueued,
		EnqueuedAt:     time.Now(),
	}
	b.jobs[job.ID] = job
	if idempotencyKey != "" {
		b.pending[idempotencyKey] = job.ID
	}

	select {
	case sub.jobs <- job.ID:
	default:
		// Queue buffer full: park the job and let a timer resubmit it.
		b.scheduleLocked(job.ID, queue, b.policy.BaseBackoff)
	}

	return job.ID, nil
}

func (b *MemoryBroker) Cancel(jobID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	job, ok := b.jobs[jobID]
	if !ok {
		return ErrUnknownJob
	}
	if job.Status != StatusQueued && job.Status != StatusRetryable {
		return ErrNotCancellable
	}

	job.Status = StatusCancelled
	if timer, ok := b.timers[jobID]; ok {
		timer.Stop()
		delete(b.timers, jobID)
	}
	if job.IdempotencyKey != "" {
		delete(b.pending, job.IdempotencyKey)
	}
	log.Printf("[Queue] Cancelled job %s on queue %s", jobID, job.Queue)
	return nil
}

func (b *MemoryBroker) Job(jobID string) (*Job, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	job, ok := b.jobs[jobID]
	if !ok {
		return nil, ErrUnknownJob
	}
	cp := *job
	return &cp, nil
}

func (b *MemoryBroker) worker(queue string, sub *subscription) {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case jobID := <-sub.jobs:
			b.process(queue, sub, jobID)
		}
	}
}

func (b *MemoryBroker) process(queue string, sub *subscription, jobID string) {
	b.mu.Lock()
	job, ok := b.jobs[jobID]
	if !ok || job.Status == StatusCancelled {
		b.mu.Unlock()
		return
	}
	job.Status = StatusActive
	job.Attempts++
	attempt := job.Attempts
	snapshot := *job
	b.mu.Unlock()

	err := sub.handler(b.ctx, &snapshot)

	b.mu.Lock()
	defer b.mu.Unlock()
	job, ok = b.jobs[jobID]
	if !ok {
		return
	}

	if err == nil {
		job.Status = StatusCompleted
		job.LastError = ""
		if job.IdempotencyKey != "" {
			delete(b.pending, job.IdempotencyKey)
		}
		return
	}

	job.LastError = err.Error()

	var r retryable
	canRetry := errors.As(err, &r) && r.Retryable()
	if canRetry && attempt < b.policy.MaxAttempts {
		job.Status = StatusRetryable
		delay := b.policy.Delay(attempt)
		log.Printf("[Queue] Job %s on %s failed (attempt %d/%d), retrying in %s: %v",
			jobID, queue, attempt, b.policy.MaxAttempts, delay, err)
		b.scheduleLocked(jobID, queue, delay)
		return
	}

	job.Status = StatusTerminal
	if job.IdempotencyKey != "" {
		delete(b.pending, job.IdempotencyKey)
	}
	log.Printf("[Queue] Job %s on %s parked terminal after %d attempts (key: %s): %v",
		jobID, queue, attempt, job.IdempotencyKey, err)
}

// scheduleLocked arms a timer that requeues the job. Caller holds b.mu.
func (b *MemoryBroker) scheduleLocked(jobID, queue string, delay time.Duration) {
	b.timers[jobID] = time.AfterFunc(delay, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.timers, jobID)

		job, ok := b.jobs[jobID]
		if !ok || job.Status == StatusCancelled {
			return
		}
		sub, ok := b.subs[queue]
		if !ok {
			return
		}
		job.Status = StatusQueued
		select {
		case sub.jobs <- jobID:
		default:
			b.scheduleLocked(jobID, queue, b.policy.BaseBackoff)
		}
	})
}
