package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hermitpopcorn/negi-ms/internal/jobs"
)

// Config sizes the queue.
type Config struct {
	// BufferSize is how many jobs can wait before PublishIngest blocks.
	BufferSize int
	// Workers is the number of concurrent handlers. Ingest needs exactly
	// one since two passes over the same maildir would double-append.
	Workers int
	// MaxRetries applies to jobs published without their own limit.
	MaxRetries int
	// Backoff is multiplied by the retry count before re-enqueueing.
	Backoff time.Duration
}

// DefaultConfig is a single worker with short linear backoff.
func DefaultConfig() Config {
	return Config{BufferSize: 16, Workers: 1, MaxRetries: 2, Backoff: time.Second}
}

// Queue is an in-memory implementation of job publisher and consumer.
// It uses Go channels for job distribution and is safe for concurrent use.
type Queue struct {
	cfg       Config
	jobChan   chan *jobs.IngestJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	store     jobs.JobStore
	closed    bool
}

// NewQueue creates a new in-memory job queue.
func NewQueue(cfg Config, store jobs.JobStore) *Queue {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.BufferSize < 0 {
		cfg.BufferSize = 0
	}
	return &Queue{
		cfg:       cfg,
		jobChan:   make(chan *jobs.IngestJob, cfg.BufferSize),
		closeChan: make(chan struct{}),
		store:     store,
	}
}

func (q *Queue) isClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// PublishIngest implements the Publisher interface.
func (q *Queue) PublishIngest(ctx context.Context, job *jobs.IngestJob) error {
	if q.isClosed() {
		return fmt.Errorf("queue is closed")
	}

	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = q.cfg.MaxRetries
	}

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("failed to save job: %w", err)
		}
	}

	select {
	case q.jobChan <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return fmt.Errorf("queue is closed")
	}
}

// Start implements the Consumer interface.
// It starts the configured number of workers and returns immediately.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	if q.isClosed() {
		return fmt.Errorf("queue is closed")
	}

	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}

	return nil
}

// worker processes jobs from the queue.
func (q *Queue) worker(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			if job == nil {
				return
			}

			q.processJob(ctx, job, handler)
		}
	}
}

// processJob executes a single job with retry logic.
func (q *Queue) processJob(ctx context.Context, job *jobs.IngestJob, handler jobs.JobHandler) {
	job.Status = jobs.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now

	if q.store != nil {
		_ = q.store.SaveJob(ctx, job)
	}

	err := handler(ctx, job)

	completedAt := time.Now()
	job.CompletedAt = &completedAt

	var retry *jobs.IngestJob
	if err != nil {
		job.Error = err.Error()

		if job.RetryCount < job.MaxRetries {
			job.RetryCount++
			job.Status = jobs.JobStatusRetrying

			next := *job
			next.Status = jobs.JobStatusPending
			next.StartedAt = nil
			next.CompletedAt = nil
			retry = &next
		} else {
			job.Status = jobs.JobStatusFailed
		}
	} else {
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
	}

	if q.store != nil {
		_ = q.store.SaveJob(ctx, job)
	}

	if retry != nil {
		backoff := time.Duration(retry.RetryCount) * q.cfg.Backoff
		time.AfterFunc(backoff, func() {
			_ = q.PublishIngest(ctx, retry)
		})
	}
}

// Stop implements the Consumer interface.
// It stops the queue and waits for all in-flight jobs to complete.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements the Publisher interface.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

// Ensure Queue implements both Publisher and Consumer interfaces.
var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
