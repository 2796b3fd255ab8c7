package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Harsh-BH/reviewlens/internal/domain"
	"github.com/Harsh-BH/reviewlens/internal/repository"
	"github.com/Harsh-BH/reviewlens/internal/repository/repotest"
)

func TestJobRepository(t *testing.T) {
	repotest.Run(t, func(*testing.T) repository.JobRepository { return NewJobRepository() })
}

func TestJobRepository_ConcurrentReadWrite(t *testing.T) {
	repo := NewJobRepository()
	ctx := context.Background()
	job := &domain.Job{JobID: uuid.Must(uuid.NewV7()), State: domain.StateProcessing}
	if err := repo.Create(ctx, job); err != nil {
		t.Fatalf("Create: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(p int) {
			defer wg.Done()
			j := job.Clone()
			j.Progress = p
			_ = repo.Update(ctx, j)
		}(i)
		go func() {
			defer wg.Done()
			if _, err := repo.GetByID(ctx, job.JobID); err != nil {
				t.Errorf("GetByID: %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestIdempotencyStore(t *testing.T) {
	s := NewIdempotencyStore(10 * time.Minute)
	now := time.Now()
	s.now = func() time.Time { return now }
	ctx := context.Background()
	id := uuid.New()

	ok, _ := s.AcquireLock(ctx, id)
	if !ok {
		t.Fatal("first acquire should succeed")
	}
	ok, _ = s.AcquireLock(ctx, id)
	if ok {
		t.Fatal("second acquire should be rejected")
	}

	_ = s.ReleaseLock(ctx, id)
	ok, _ = s.AcquireLock(ctx, id)
	if ok {
		t.Fatal("released lock should block duplicates until ttl")
	}

	now = now.Add(11 * time.Minute)
	ok, _ = s.AcquireLock(ctx, id)
	if !ok {
		t.Fatal("expired lock should be acquirable")
	}
}
