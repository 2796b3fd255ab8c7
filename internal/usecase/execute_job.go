package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Harsh-BH/reviewlens/internal/cache"
	"github.com/Harsh-BH/reviewlens/internal/collector"
	"github.com/Harsh-BH/reviewlens/internal/domain"
	"github.com/Harsh-BH/reviewlens/internal/metrics"
	"github.com/Harsh-BH/reviewlens/internal/progress"
	"github.com/Harsh-BH/reviewlens/internal/repository"
	"github.com/Harsh-BH/reviewlens/internal/source"
	"github.com/Harsh-BH/reviewlens/internal/summarizer"
)

// errInternal replaces the message of recovered panics.
var errInternal = errors.New("internal error")

// ExecuteJobUsecase orchestrates the full analysis pipeline for one job.
type ExecuteJobUsecase struct {
	repo      repository.JobRepository
	locks     repository.IdempotencyStore
	sources   *source.Registry
	collector *collector.Collector
	analyzer  *summarizer.Analyzer
	cache     cache.ResultCache
	logger    *zap.Logger

	group singleflight.Group
	now   func() time.Time
}

// NewExecuteJobUsecase creates a new ExecuteJobUsecase.
func NewExecuteJobUsecase(
	repo repository.JobRepository,
	locks repository.IdempotencyStore,
	sources *source.Registry,
	col *collector.Collector,
	analyzer *summarizer.Analyzer,
	resultCache cache.ResultCache,
	logger *zap.Logger,
) *ExecuteJobUsecase {
	if resultCache == nil {
		resultCache = cache.Nop{}
	}
	return &ExecuteJobUsecase{
		repo:      repo,
		locks:     locks,
		sources:   sources,
		collector: col,
		analyzer:  analyzer,
		cache:     resultCache,
		logger:    logger,
		now:       time.Now,
	}
}

// Execute runs one job to a terminal state: idempotency check → PROCESSING → cache or
// search, collect, analyze → COMPLETED or FAILED. Returns (isDuplicate, error). Job
// failures are recorded on the job and are not returned; the error is reserved for
// infrastructure failures that prevented recording anything.
func (uc *ExecuteJobUsecase) Execute(ctx context.Context, jobID uuid.UUID) (bool, error) {
	logger := uc.logger.With(zap.String("job_id", jobID.String()))

	// Step 1: Idempotency check
	acquired, err := uc.locks.AcquireLock(ctx, jobID)
	if err != nil {
		logger.Error("Failed to acquire idempotency lock", zap.Error(err))
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	if !acquired {
		logger.Info("Duplicate message detected, skipping")
		return true, nil
	}
	// Release with a TTL for eventual cleanup, even if ctx is already done.
	defer func() { _ = uc.locks.ReleaseLock(context.WithoutCancel(ctx), jobID) }()

	// Step 2: Load the authoritative copy
	job, err := uc.repo.GetByID(ctx, jobID)
	if errors.Is(err, domain.ErrJobNotFound) {
		logger.Warn("Job disappeared before execution")
		return false, nil
	}
	if err != nil {
		logger.Error("Failed to load job", zap.Error(err))
		return false, fmt.Errorf("load job: %w", err)
	}
	if job.State.IsTerminal() {
		logger.Info("Job already finished, skipping", zap.String("state", string(job.State)))
		return true, nil
	}

	// Step 3: PROCESSING
	t := &tracker{repo: uc.repo, job: job, logger: logger}
	t.start(ctx)

	// Step 4: Run the pipeline
	start := uc.now()
	result, err := uc.safeRun(ctx, t, job.Params, logger)
	elapsed := uc.now().Sub(start).Seconds()

	// Step 5: Terminal state
	if err != nil {
		t.fail(ctx, err)
		metrics.JobsFinished.WithLabelValues(string(domain.StateFailed), failureReason(err)).Inc()
		metrics.JobDuration.WithLabelValues(string(domain.StateFailed)).Observe(elapsed)
		logger.Warn("Job failed", zap.Error(err), zap.Float64("elapsed_s", elapsed))
		return false, nil
	}

	t.complete(ctx, result)
	metrics.JobsFinished.WithLabelValues(string(domain.StateCompleted), "ok").Inc()
	metrics.JobDuration.WithLabelValues(string(domain.StateCompleted)).Observe(elapsed)
	logger.Info("Job completed successfully",
		zap.Int("records", result.RecordCount),
		zap.Int("liked", len(result.Liked)),
		zap.Int("disliked", len(result.Disliked)),
		zap.String("engine", result.Engine),
		zap.Float64("elapsed_s", elapsed),
	)
	return false, nil
}

func (uc *ExecuteJobUsecase) safeRun(ctx context.Context, rep progress.Reporter, p domain.JobParams, logger *zap.Logger) (result *domain.AnalysisResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panic recovered", zap.Any("panic", r))
			result, err = nil, errInternal
		}
	}()
	return uc.run(ctx, rep, p, logger)
}

// run serves the result from cache, or computes it once per key even when several
// jobs ask for the same parameters at the same time.
func (uc *ExecuteJobUsecase) run(ctx context.Context, rep progress.Reporter, p domain.JobParams, logger *zap.Logger) (*domain.AnalysisResult, error) {
	key := cache.Key(p)
	if r, ok := uc.cache.Get(ctx, key); ok {
		logger.Info("Result served from cache", zap.String("cache_key", key))
		return r, nil
	}

	v, err, shared := uc.group.Do(key, func() (any, error) {
		r, err := uc.analyze(ctx, rep, p, logger)
		if err != nil {
			return nil, err
		}
		uc.cache.Set(ctx, key, r)
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	result := v.(*domain.AnalysisResult)
	if shared {
		result = result.Clone()
	}
	return result, nil
}

func (uc *ExecuteJobUsecase) analyze(ctx context.Context, rep progress.Reporter, p domain.JobParams, logger *zap.Logger) (*domain.AnalysisResult, error) {
	client, err := uc.sources.Get(p.Source)
	if err != nil {
		return nil, err
	}

	rep.Report(ctx, 10, "Searching for app")
	subject, err := uc.collector.Search(ctx, client, p.Query, p.Language, p.Region)
	if err != nil {
		return nil, err
	}

	records, collectErr := uc.collector.FetchAll(ctx, client, subject.ID, p.Region, progress.Scale(rep, 10, 80))
	if len(records) == 0 {
		if collectErr != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrNoRecords, collectErr)
		}
		return nil, domain.ErrNoRecords
	}
	if collectErr != nil {
		logger.Warn("Continuing with partial reviews", zap.Int("records", len(records)), zap.Error(collectErr))
	}

	rep.Report(ctx, 85, fmt.Sprintf("Analyzing %d reviews", len(records)))
	analysis := uc.analyzer.Analyze(ctx, records, p.Language)

	return &domain.AnalysisResult{
		Subject:       *subject,
		DateRange:     domain.RangeOf(records),
		Liked:         analysis.Summary.Liked,
		Disliked:      analysis.Summary.Disliked,
		Examples:      analysis.Summary.Examples,
		RecordCount:   len(records),
		AnalyzedCount: analysis.Analyzed,
		Engine:        analysis.Engine,
		GeneratedAt:   uc.now().UTC(),
	}, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, errInternal):
		return "panic"
	case errors.Is(err, domain.ErrSubjectNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrNoRecords):
		return "no_records"
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return "upstream"
	case errors.Is(err, domain.ErrInvalidArgument):
		return "invalid"
	}
	return "error"
}

// tracker owns the in-flight copy of a job and persists every change. Progress is
// clamped and never moves backwards. Once the job is found deleted, further writes are
// dropped.
type tracker struct {
	repo   repository.JobRepository
	logger *zap.Logger

	mu   sync.Mutex
	job  *domain.Job
	gone bool
}

func (t *tracker) start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.job.State = domain.StateProcessing
	t.job.Progress = max(t.job.Progress, 5)
	t.job.Message = "Starting analysis"
	t.save(ctx)
}

// Report implements progress.Reporter.
func (t *tracker) Report(ctx context.Context, percent int, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gone || t.job.State.IsTerminal() {
		return
	}
	t.job.Progress = max(t.job.Progress, progress.Clamp(percent))
	t.job.Message = message
	t.save(ctx)
}

func (t *tracker) complete(ctx context.Context, result *domain.AnalysisResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.job.State = domain.StateCompleted
	t.job.Progress = 100
	t.job.Message = "Analysis complete"
	t.job.Result = result
	t.job.Error = ""
	t.save(ctx)
}

func (t *tracker) fail(ctx context.Context, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.job.State = domain.StateFailed
	t.job.Progress = 0
	t.job.Message = "Analysis failed"
	t.job.Result = nil
	t.job.Error = err.Error()
	t.save(ctx)
}

func (t *tracker) save(ctx context.Context) {
	if t.gone {
		return
	}
	err := t.repo.Update(context.WithoutCancel(ctx), t.job)
	switch {
	case errors.Is(err, domain.ErrJobNotFound):
		t.gone = true
		t.logger.Warn("Job deleted while running, dropping updates")
	case err != nil:
		t.logger.Warn("Failed to persist job update", zap.Int("progress", t.job.Progress), zap.Error(err))
	}
}
