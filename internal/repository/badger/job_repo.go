// Package badger implements an embedded job repository on badgerhold.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/timshannon/badgerhold/v4"

	"github.com/Harsh-BH/reviewlens/internal/domain"
	"github.com/Harsh-BH/reviewlens/internal/repository"
)

var _ repository.JobRepository = (*JobRepository)(nil)

// jobRecord is the stored shape. CreatedAt is kept as unix nanos so the sweep query
// compares plain integers. The job itself is JSON so empty lists survive a round trip.
type jobRecord struct {
	ID        string
	CreatedAt int64 `badgerholdIndex:"CreatedAt"`
	Data      []byte
}

func newRecord(job *domain.Job) (jobRecord, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return jobRecord{}, fmt.Errorf("badger: encode job: %w", err)
	}
	return jobRecord{ID: job.JobID.String(), CreatedAt: job.CreatedAt.UnixNano(), Data: data}, nil
}

// JobRepository persists jobs in an embedded Badger database.
type JobRepository struct {
	store *badgerhold.Store
}

// Open opens (or creates) the database at dir. An empty dir opens an in-memory store.
func Open(dir string) (*JobRepository, error) {
	options := badgerhold.DefaultOptions
	if dir == "" {
		options.Options = badgerdb.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(filepath.Clean(dir), 0o755); err != nil {
			return nil, fmt.Errorf("badger: create directory: %w", err)
		}
		options.Options = badgerdb.DefaultOptions(dir)
	}
	options.Options = options.Options.WithLogger(nil)

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("badger: open: %w", err)
	}
	return &JobRepository{store: store}, nil
}

// Close closes the underlying database.
func (r *JobRepository) Close() error {
	return r.store.Close()
}

func (r *JobRepository) Create(_ context.Context, job *domain.Job) error {
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	rec, err := newRecord(job)
	if err != nil {
		return err
	}
	if err := r.store.Insert(rec.ID, rec); err != nil {
		return fmt.Errorf("badger: create job: %w", err)
	}
	return nil
}

func (r *JobRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Job, error) {
	var rec jobRecord
	if err := r.store.Get(id.String(), &rec); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("badger: get job by id: %w", err)
	}
	job := &domain.Job{}
	if err := json.Unmarshal(rec.Data, job); err != nil {
		return nil, fmt.Errorf("badger: decode job: %w", err)
	}
	return job, nil
}

func (r *JobRepository) Update(_ context.Context, job *domain.Job) error {
	job.UpdatedAt = time.Now().UTC()
	rec, err := newRecord(job)
	if err != nil {
		return err
	}
	if err := r.store.Update(rec.ID, rec); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return domain.ErrJobNotFound
		}
		return fmt.Errorf("badger: update job: %w", err)
	}
	return nil
}

func (r *JobRepository) Delete(_ context.Context, id uuid.UUID) error {
	err := r.store.Delete(id.String(), jobRecord{})
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("badger: delete job: %w", err)
	}
	return nil
}

func (r *JobRepository) ListIDs(_ context.Context) ([]uuid.UUID, error) {
	var recs []jobRecord
	if err := r.store.Find(&recs, badgerhold.Where("ID").Ne("").SortBy("CreatedAt")); err != nil {
		return nil, fmt.Errorf("badger: list job ids: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(recs))
	for _, rec := range recs {
		id, err := uuid.Parse(rec.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *JobRepository) DeleteCreatedBefore(_ context.Context, cutoff time.Time) (int, error) {
	var recs []jobRecord
	if err := r.store.Find(&recs, badgerhold.Where("CreatedAt").Lt(cutoff.UnixNano())); err != nil {
		return 0, fmt.Errorf("badger: find expired jobs: %w", err)
	}
	n := 0
	for _, rec := range recs {
		if err := r.store.Delete(rec.ID, jobRecord{}); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
			return n, fmt.Errorf("badger: delete expired job: %w", err)
		}
		n++
	}
	return n, nil
}
