// Package redis implements the repository interfaces on top of Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Harsh-BH/reviewlens/internal/domain"
	"github.com/Harsh-BH/reviewlens/internal/repository"
)

var _ repository.JobRepository = (*redisJobRepo)(nil)

const (
	jobKeyPrefix = "reviewlens:job:"
	jobIDsKey    = "reviewlens:job_ids"
)

// redisJobRepo stores each job as JSON under its own key and tracks every id in a set,
// which is what the retention sweep walks.
type redisJobRepo struct {
	client goredis.Cmdable
}

// NewRedisJobRepository creates a Redis-backed job repository.
func NewRedisJobRepository(client goredis.Cmdable) repository.JobRepository {
	return &redisJobRepo{client: client}
}

func jobKey(id uuid.UUID) string { return jobKeyPrefix + id.String() }

func (r *redisJobRepo) Create(ctx context.Context, job *domain.Job) error {
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("redis: encode job: %w", err)
	}
	ok, err := r.client.SetNX(ctx, jobKey(job.JobID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("redis: create job: %w", err)
	}
	if !ok {
		return fmt.Errorf("redis: create job: %s already exists", job.JobID)
	}
	if err := r.client.SAdd(ctx, jobIDsKey, job.JobID.String()).Err(); err != nil {
		return fmt.Errorf("redis: index job: %w", err)
	}
	return nil
}

func (r *redisJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	data, err := r.client.Get(ctx, jobKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get job by id: %w", err)
	}
	job := &domain.Job{}
	if err := json.Unmarshal(data, job); err != nil {
		return nil, fmt.Errorf("redis: decode job: %w", err)
	}
	return job, nil
}

// Update overwrites the job only if its key still exists, so a write racing the sweep
// cannot resurrect a deleted job.
func (r *redisJobRepo) Update(ctx context.Context, job *domain.Job) error {
	job.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("redis: encode job: %w", err)
	}
	ok, err := r.client.SetXX(ctx, jobKey(job.JobID), data, goredis.KeepTTL).Result()
	if err != nil {
		return fmt.Errorf("redis: update job: %w", err)
	}
	if !ok {
		return domain.ErrJobNotFound
	}
	return nil
}

func (r *redisJobRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, jobKey(id))
		pipe.SRem(ctx, jobIDsKey, id.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: delete job: %w", err)
	}
	return nil
}

func (r *redisJobRepo) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	members, err := r.client.SMembers(ctx, jobIDsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list job ids: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// DeleteCreatedBefore walks the id set. Ids whose job key has already vanished are
// dropped from the set as well.
func (r *redisJobRepo) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	ids, err := r.ListIDs(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, id := range ids {
		job, err := r.GetByID(ctx, id)
		switch {
		case errors.Is(err, domain.ErrJobNotFound):
			if err := r.client.SRem(ctx, jobIDsKey, id.String()).Err(); err != nil {
				return n, fmt.Errorf("redis: prune job id: %w", err)
			}
			continue
		case err != nil:
			return n, err
		}
		if !job.CreatedAt.Before(cutoff) {
			continue
		}
		if err := r.Delete(ctx, id); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
