package mock

import (
	"context"
	"sync"

	"github.com/Harsh-BH/reviewlens/internal/domain"
	"github.com/Harsh-BH/reviewlens/internal/publisher"
)

// Ensure MockPublisher implements publisher.Publisher.
var _ publisher.Publisher = (*MockPublisher)(nil)

// MockPublisher is a mock job publisher for testing.
type MockPublisher struct {
	mu        sync.Mutex
	Published []*domain.Job
	PublishFn func(ctx context.Context, job *domain.Job) error
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, job *domain.Job) error {
	if m.PublishFn != nil {
		return m.PublishFn(ctx, job)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = append(m.Published, job)
	return nil
}

// PublishedJobs returns a copy of every published job.
func (m *MockPublisher) PublishedJobs() []*domain.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.Job(nil), m.Published...)
}

func (m *MockPublisher) Close() error {
	return nil
}
