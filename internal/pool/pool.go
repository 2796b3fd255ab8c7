// Package pool runs a fixed number of workers over a channel of dispatched jobs.
package pool

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Harsh-BH/reviewlens/internal/domain"
	"github.com/Harsh-BH/reviewlens/internal/metrics"
)

var errPanic = errors.New("worker panic")

// Executor runs one job. It reports duplicates so they can be acknowledged without work.
type Executor interface {
	Execute(ctx context.Context, jobID uuid.UUID) (bool, error)
}

// WorkerPool manages a fixed-size pool of goroutines that process jobs.
type WorkerPool struct {
	size     int
	jobs     <-chan *domain.JobMessage
	executor Executor
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewWorkerPool creates a new fixed-size worker pool.
func NewWorkerPool(size int, jobs <-chan *domain.JobMessage, executor Executor, logger *zap.Logger) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{
		size:     size,
		jobs:     jobs,
		executor: executor,
		logger:   logger,
	}
}

// Start launches all worker goroutines. Workers exit when ctx is cancelled or the job
// channel is closed. Call Stop to wait for them to finish.
func (p *WorkerPool) Start(ctx context.Context) {
	p.logger.Info("Starting worker pool", zap.Int("pool_size", p.size))

	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop waits for all workers to finish their current jobs and exit.
func (p *WorkerPool) Stop() {
	p.wg.Wait()
	p.logger.Info("Worker pool stopped")
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	p.logger.Debug("Worker started", zap.Int("worker_id", id))

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("Worker shutting down", zap.Int("worker_id", id))
			return
		case msg, ok := <-p.jobs:
			if !ok {
				p.logger.Debug("Job channel closed", zap.Int("worker_id", id))
				return
			}
			p.handle(ctx, id, msg)
		}
	}
}

// handle runs a single message. A started job is not cancelled by shutdown; it runs
// to a terminal state.
func (p *WorkerPool) handle(ctx context.Context, id int, msg *domain.JobMessage) {
	jobID := msg.Job.JobID
	logger := p.logger.With(zap.Int("worker_id", id), zap.String("job_id", jobID.String()))

	metrics.WorkersActive.Inc()
	defer metrics.WorkersActive.Dec()

	isDuplicate, err := p.execute(context.WithoutCancel(ctx), jobID, logger)
	if err != nil {
		logger.Error("Job execution failed", zap.Error(err))

		// Nack without requeue: failed jobs go to DLQ.
		// Requeuing a deterministic failure would cause an infinite loop.
		if nackErr := msg.Nack(false); nackErr != nil {
			logger.Error("Failed to NACK message", zap.Error(nackErr))
		}
		return
	}

	if isDuplicate {
		logger.Debug("Duplicate job skipped")
	}
	if ackErr := msg.Ack(); ackErr != nil {
		logger.Error("Failed to ACK message", zap.Error(ackErr))
	}
}

func (p *WorkerPool) execute(ctx context.Context, jobID uuid.UUID, logger *zap.Logger) (dup bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Worker panic recovered", zap.Any("panic", r))
			dup, err = false, errPanic
		}
	}()
	return p.executor.Execute(ctx, jobID)
}
