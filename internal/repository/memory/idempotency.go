package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Harsh-BH/reviewlens/internal/repository"
)

var _ repository.IdempotencyStore = (*IdempotencyStore)(nil)

// IdempotencyStore is a process-local lock table. A released lock keeps blocking
// duplicates until its TTL runs out, matching the Redis store.
type IdempotencyStore struct {
	mu    sync.Mutex
	locks map[uuid.UUID]time.Time
	ttl   time.Duration
	now   func() time.Time
}

// NewIdempotencyStore creates a lock table whose entries expire after ttl.
func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		locks: make(map[uuid.UUID]time.Time),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (s *IdempotencyStore) AcquireLock(_ context.Context, jobID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, exp := range s.locks {
		if !now.Before(exp) {
			delete(s.locks, id)
		}
	}
	if _, held := s.locks[jobID]; held {
		return false, nil
	}
	s.locks[jobID] = now.Add(s.ttl)
	return true, nil
}

func (s *IdempotencyStore) ReleaseLock(_ context.Context, jobID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.locks[jobID]; held {
		s.locks[jobID] = s.now().Add(s.ttl)
	}
	return nil
}
