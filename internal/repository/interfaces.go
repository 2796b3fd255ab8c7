package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Harsh-BH/reviewlens/internal/domain"
)

// JobRepository defines the interface for job persistence operations.
// Implementations must be safe for concurrent use and never hand out aliased state:
// callers always receive snapshots.
type JobRepository interface {
	// Create inserts a new job into the data store.
	Create(ctx context.Context, job *domain.Job) error

	// GetByID retrieves a job by its UUID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)

	// Update replaces the stored job. The last write wins. Returns domain.ErrJobNotFound
	// if the job was deleted in the meantime.
	Update(ctx context.Context, job *domain.Job) error

	// Delete removes a job. Deleting an unknown job is not an error.
	Delete(ctx context.Context, id uuid.UUID) error

	// ListIDs returns the ids of every stored job.
	ListIDs(ctx context.Context) ([]uuid.UUID, error)

	// DeleteCreatedBefore removes every job created before cutoff and returns how many
	// were removed.
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// IdempotencyStore defines the interface for distributed deduplication locks.
type IdempotencyStore interface {
	// AcquireLock attempts to acquire an exclusive processing lock for a job.
	// Returns true if the lock was acquired (first time), false if already locked (duplicate).
	AcquireLock(ctx context.Context, jobID uuid.UUID) (bool, error)

	// ReleaseLock releases the processing lock with a TTL for eventual cleanup.
	ReleaseLock(ctx context.Context, jobID uuid.UUID) error
}
