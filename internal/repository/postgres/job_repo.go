package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Harsh-BH/reviewlens/internal/domain"
	"github.com/Harsh-BH/reviewlens/internal/repository"
)

// Ensure pgJobRepo implements repository.JobRepository.
var _ repository.JobRepository = (*pgJobRepo)(nil)

const jobsTable = "analysis_jobs"

const schema = `
CREATE TABLE IF NOT EXISTS analysis_jobs (
	job_id     UUID PRIMARY KEY,
	state      TEXT        NOT NULL,
	progress   INTEGER     NOT NULL DEFAULT 0,
	message    TEXT        NOT NULL DEFAULT '',
	params     JSONB       NOT NULL,
	result     JSONB,
	error      TEXT        NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS analysis_jobs_created_at_idx ON analysis_jobs (created_at);`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var jobColumns = []string{
	"job_id", "state", "progress", "message", "params", "result", "error", "created_at", "updated_at",
}

type pgJobRepo struct {
	pool *pgxpool.Pool
}

// NewPostgresJobRepository creates a new PostgreSQL-backed job repository.
func NewPostgresJobRepository(pool *pgxpool.Pool) repository.JobRepository {
	return &pgJobRepo{pool: pool}
}

// EnsureSchema creates the jobs table if it does not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}
	return nil
}

func encodeResult(r *domain.AnalysisResult) ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	return json.Marshal(r)
}

func (r *pgJobRepo) Create(ctx context.Context, job *domain.Job) error {
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	params, err := json.Marshal(job.Params)
	if err != nil {
		return fmt.Errorf("postgres: encode params: %w", err)
	}
	result, err := encodeResult(job.Result)
	if err != nil {
		return fmt.Errorf("postgres: encode result: %w", err)
	}

	query, args, err := psql.Insert(jobsTable).
		Columns(jobColumns...).
		Values(job.JobID, job.State, job.Progress, job.Message, params, result, job.Error, job.CreatedAt, job.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("postgres: build insert: %w", err)
	}
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("postgres: create job: %w", err)
	}
	return nil
}

func (r *pgJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	query, args, err := psql.Select(jobColumns...).
		From(jobsTable).
		Where(sq.Eq{"job_id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("postgres: build select: %w", err)
	}

	var (
		job    domain.Job
		params []byte
		result []byte
	)
	err = r.pool.QueryRow(ctx, query, args...).Scan(
		&job.JobID, &job.State, &job.Progress, &job.Message,
		&params, &result, &job.Error,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get job by id: %w", err)
	}

	if err := json.Unmarshal(params, &job.Params); err != nil {
		return nil, fmt.Errorf("postgres: decode params: %w", err)
	}
	if len(result) > 0 {
		job.Result = &domain.AnalysisResult{}
		if err := json.Unmarshal(result, job.Result); err != nil {
			return nil, fmt.Errorf("postgres: decode result: %w", err)
		}
	}
	return &job, nil
}

func (r *pgJobRepo) Update(ctx context.Context, job *domain.Job) error {
	job.UpdatedAt = time.Now().UTC()
	result, err := encodeResult(job.Result)
	if err != nil {
		return fmt.Errorf("postgres: encode result: %w", err)
	}

	query, args, err := psql.Update(jobsTable).
		Set("state", job.State).
		Set("progress", job.Progress).
		Set("message", job.Message).
		Set("result", result).
		Set("error", job.Error).
		Set("updated_at", job.UpdatedAt).
		Where(sq.Eq{"job_id": job.JobID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("postgres: build update: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("postgres: update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func (r *pgJobRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query, args, err := psql.Delete(jobsTable).Where(sq.Eq{"job_id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("postgres: build delete: %w", err)
	}
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("postgres: delete job: %w", err)
	}
	return nil
}

func (r *pgJobRepo) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	query, args, err := psql.Select("job_id").From(jobsTable).OrderBy("created_at").ToSql()
	if err != nil {
		return nil, fmt.Errorf("postgres: build list: %w", err)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list job ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("postgres: scan job ids: %w", err)
	}
	return ids, nil
}

func (r *pgJobRepo) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	query, args, err := psql.Delete(jobsTable).Where(sq.Lt{"created_at": cutoff}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("postgres: build sweep: %w", err)
	}
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("postgres: sweep jobs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
