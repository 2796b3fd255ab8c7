// Package repotest holds behaviour checks shared by every JobRepository backend.
package repotest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Harsh-BH/reviewlens/internal/domain"
	"github.com/Harsh-BH/reviewlens/internal/repository"
)

func newJob(createdAt time.Time) *domain.Job {
	return &domain.Job{
		JobID:     uuid.Must(uuid.NewV7()),
		State:     domain.StatePending,
		Message:   "queued",
		Params:    domain.JobParams{Query: "notes", Language: domain.LangEnglish, Region: "us", Source: domain.SourceMock},
		CreatedAt: createdAt,
	}
}

// Run exercises repo against the JobRepository contract.
func Run(t *testing.T, newRepo func(t *testing.T) repository.JobRepository) {
	t.Run("CreateAndGet", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		job := newJob(time.Time{})
		if err := repo.Create(ctx, job); err != nil {
			t.Fatalf("Create: %v", err)
		}
		if job.CreatedAt.IsZero() || job.UpdatedAt.IsZero() {
			t.Fatal("expected timestamps to be set on create")
		}

		got, err := repo.GetByID(ctx, job.JobID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if got.JobID != job.JobID || got.State != domain.StatePending || got.Params != job.Params {
			t.Errorf("unexpected job: %+v", got)
		}
	})

	t.Run("GetUnknown", func(t *testing.T) {
		_, err := newRepo(t).GetByID(context.Background(), uuid.New())
		if !errors.Is(err, domain.ErrJobNotFound) {
			t.Errorf("expected ErrJobNotFound, got %v", err)
		}
	})

	t.Run("UpdateLastWriteWins", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		job := newJob(time.Time{})
		if err := repo.Create(ctx, job); err != nil {
			t.Fatalf("Create: %v", err)
		}

		job.State = domain.StateCompleted
		job.Progress = 100
		job.Result = &domain.AnalysisResult{
			Liked:    []domain.Feature{{Name: "Performance", VoteCount: 3}},
			Disliked: []domain.Feature{},
			Examples: map[string][]string{"liked_Performance": {"fast"}},
			Engine:   "local",
		}
		if err := repo.Update(ctx, job); err != nil {
			t.Fatalf("Update: %v", err)
		}

		got, err := repo.GetByID(ctx, job.JobID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if got.State != domain.StateCompleted || got.Progress != 100 {
			t.Errorf("update not applied: %+v", got)
		}
		if got.Result == nil || len(got.Result.Liked) != 1 || got.Result.Examples["liked_Performance"][0] != "fast" {
			t.Errorf("result not persisted: %+v", got.Result)
		}
		if got.UpdatedAt.Before(got.CreatedAt) {
			t.Error("updated_at must not precede created_at")
		}
	})

	t.Run("SnapshotsDoNotAlias", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		job := newJob(time.Time{})
		if err := repo.Create(ctx, job); err != nil {
			t.Fatalf("Create: %v", err)
		}
		job.Message = "mutated after create"

		got, _ := repo.GetByID(ctx, job.JobID)
		if got.Message != "queued" {
			t.Errorf("store aliased caller state: %q", got.Message)
		}
	})

	t.Run("UpdateDeleted", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		job := newJob(time.Time{})
		if err := repo.Create(ctx, job); err != nil {
			t.Fatalf("Create: %v", err)
		}
		if err := repo.Delete(ctx, job.JobID); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if err := repo.Update(ctx, job); !errors.Is(err, domain.ErrJobNotFound) {
			t.Errorf("expected ErrJobNotFound, got %v", err)
		}
		if err := repo.Delete(ctx, job.JobID); err != nil {
			t.Errorf("second Delete: %v", err)
		}
	})

	t.Run("ListAndSweep", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		now := time.Now().UTC()
		old1, old2, fresh := newJob(now.Add(-48*time.Hour)), newJob(now.Add(-25*time.Hour)), newJob(now.Add(-time.Hour))
		for _, j := range []*domain.Job{old1, old2, fresh} {
			if err := repo.Create(ctx, j); err != nil {
				t.Fatalf("Create: %v", err)
			}
		}

		ids, err := repo.ListIDs(ctx)
		if err != nil {
			t.Fatalf("ListIDs: %v", err)
		}
		if len(ids) != 3 {
			t.Fatalf("expected 3 ids, got %d", len(ids))
		}

		n, err := repo.DeleteCreatedBefore(ctx, now.Add(-24*time.Hour))
		if err != nil {
			t.Fatalf("DeleteCreatedBefore: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 deleted, got %d", n)
		}
		if _, err := repo.GetByID(ctx, fresh.JobID); err != nil {
			t.Errorf("fresh job swept: %v", err)
		}
		if _, err := repo.GetByID(ctx, old1.JobID); !errors.Is(err, domain.ErrJobNotFound) {
			t.Errorf("old job survived: %v", err)
		}
		ids, _ = repo.ListIDs(ctx)
		if len(ids) != 1 || ids[0] != fresh.JobID {
			t.Errorf("unexpected ids after sweep: %v", ids)
		}
	})
}
