package publisher

import (
	"context"
	"sync"

	"github.com/Harsh-BH/reviewlens/internal/domain"
)

var _ Publisher = (*Local)(nil)

// Local dispatches jobs to an in-process worker pool through a bounded channel.
// Publish never blocks: a full queue is reported as domain.ErrQueueFull.
type Local struct {
	mu     sync.RWMutex
	jobs   chan *domain.JobMessage
	closed bool
}

// NewLocal creates a local dispatcher buffering up to size jobs.
func NewLocal(size int) *Local {
	if size <= 0 {
		size = 1
	}
	return &Local{jobs: make(chan *domain.JobMessage, size)}
}

// Jobs is the channel the worker pool consumes.
func (l *Local) Jobs() <-chan *domain.JobMessage {
	return l.jobs
}

func (l *Local) Publish(_ context.Context, job *domain.Job) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return domain.ErrPublishFailed
	}

	msg := &domain.JobMessage{
		Job:  job,
		Ack:  func() error { return nil },
		Nack: func(bool) error { return nil },
	}
	select {
	case l.jobs <- msg:
		return nil
	default:
		return domain.ErrQueueFull
	}
}

// Close stops accepting jobs and closes the channel so workers drain and exit.
func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		close(l.jobs)
	}
	return nil
}
