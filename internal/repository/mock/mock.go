// Package mock provides hook-driven test doubles for the repository interfaces.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Harsh-BH/reviewlens/internal/domain"
	"github.com/Harsh-BH/reviewlens/internal/repository"
)

// ---- JobRepository mock ----

var _ repository.JobRepository = (*JobRepository)(nil)

// JobRepository is an in-memory test double for repository.JobRepository. Hook
// functions replace the default behaviour when set.
type JobRepository struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*domain.Job

	CreateFn              func(ctx context.Context, job *domain.Job) error
	GetByIDFn             func(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	UpdateFn              func(ctx context.Context, job *domain.Job) error
	DeleteCreatedBeforeFn func(ctx context.Context, cutoff time.Time) (int, error)

	// Recorded calls for assertions.
	Updates []*domain.Job
	Sweeps  []time.Time
}

// NewJobRepository creates an empty mock repository.
func NewJobRepository() *JobRepository {
	return &JobRepository{jobs: make(map[uuid.UUID]*domain.Job)}
}

func (m *JobRepository) Create(ctx context.Context, job *domain.Job) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, job)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	job.UpdatedAt = job.CreatedAt
	m.jobs[job.JobID] = job.Clone()
	return nil
}

func (m *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return job.Clone(), nil
}

func (m *JobRepository) Update(ctx context.Context, job *domain.Job) error {
	m.mu.Lock()
	m.Updates = append(m.Updates, job.Clone())
	m.mu.Unlock()
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, job)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.JobID]; !ok {
		return domain.ErrJobNotFound
	}
	job.UpdatedAt = time.Now().UTC()
	m.jobs[job.JobID] = job.Clone()
	return nil
}

func (m *JobRepository) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
	return nil
}

func (m *JobRepository) ListIDs(_ context.Context) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(m.jobs))
	for id := range m.jobs {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *JobRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	m.Sweeps = append(m.Sweeps, cutoff)
	m.mu.Unlock()
	if m.DeleteCreatedBeforeFn != nil {
		return m.DeleteCreatedBeforeFn(ctx, cutoff)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, j := range m.jobs {
		if j.CreatedAt.Before(cutoff) {
			delete(m.jobs, id)
			n++
		}
	}
	return n, nil
}

// UpdateHistory returns a copy of every job passed to Update, in call order.
func (m *JobRepository) UpdateHistory() []*domain.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.Job(nil), m.Updates...)
}

// SweepCount returns how many times DeleteCreatedBefore was called.
func (m *JobRepository) SweepCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sweeps)
}

// ---- IdempotencyStore mock ----

var _ repository.IdempotencyStore = (*IdempotencyStore)(nil)

// IdempotencyStore is a test double for repository.IdempotencyStore.
type IdempotencyStore struct {
	mu sync.Mutex

	AcquireLockFn func(ctx context.Context, jobID uuid.UUID) (bool, error)
	ReleaseLockFn func(ctx context.Context, jobID uuid.UUID) error

	AcquireCalls []uuid.UUID
	ReleaseCalls []uuid.UUID
}

func (m *IdempotencyStore) AcquireLock(ctx context.Context, jobID uuid.UUID) (bool, error) {
	m.mu.Lock()
	m.AcquireCalls = append(m.AcquireCalls, jobID)
	m.mu.Unlock()
	if m.AcquireLockFn != nil {
		return m.AcquireLockFn(ctx, jobID)
	}
	return true, nil // default: lock acquired
}

func (m *IdempotencyStore) ReleaseLock(ctx context.Context, jobID uuid.UUID) error {
	m.mu.Lock()
	m.ReleaseCalls = append(m.ReleaseCalls, jobID)
	m.mu.Unlock()
	if m.ReleaseLockFn != nil {
		return m.ReleaseLockFn(ctx, jobID)
	}
	return nil
}
