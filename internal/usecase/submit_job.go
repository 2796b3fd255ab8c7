package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Harsh-BH/reviewlens/internal/domain"
	"github.com/Harsh-BH/reviewlens/internal/metrics"
	"github.com/Harsh-BH/reviewlens/internal/publisher"
	"github.com/Harsh-BH/reviewlens/internal/repository"
	"github.com/Harsh-BH/reviewlens/internal/source"
)

// SubmitJobUsecase handles the business logic for submitting analysis jobs.
type SubmitJobUsecase struct {
	repo      repository.JobRepository
	publisher publisher.Publisher
	sources   *source.Registry
	sweeper   *Sweeper
	logger    *zap.Logger
}

// NewSubmitJobUsecase creates a new SubmitJobUsecase. sweeper may be nil.
func NewSubmitJobUsecase(
	repo repository.JobRepository,
	pub publisher.Publisher,
	sources *source.Registry,
	sweeper *Sweeper,
	logger *zap.Logger,
) *SubmitJobUsecase {
	return &SubmitJobUsecase{
		repo:      repo,
		publisher: pub,
		sources:   sources,
		sweeper:   sweeper,
		logger:    logger,
	}
}

// Execute validates the submission, creates a job, dispatches it, and returns the job ID.
// It never waits for the analysis itself.
func (uc *SubmitJobUsecase) Execute(ctx context.Context, req *domain.SubmitRequest) (*domain.SubmitResponse, error) {
	params := req.Params()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if _, err := uc.sources.Get(params.Source); err != nil {
		return nil, err
	}

	// Generate UUIDv7 (time-ordered)
	jobID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate UUIDv7: %w", err)
	}

	job := &domain.Job{
		JobID:   jobID,
		State:   domain.StatePending,
		Message: "Queued",
		Params:  params,
	}

	if err := uc.repo.Create(ctx, job); err != nil {
		uc.logger.Error("Failed to create job", zap.Error(err), zap.String("job_id", jobID.String()))
		return nil, fmt.Errorf("create job: %w", err)
	}
	metrics.JobsSubmitted.WithLabelValues(string(params.Source), string(params.Language)).Inc()

	if err := uc.publisher.Publish(ctx, job.Clone()); err != nil {
		uc.logger.Error("Failed to dispatch job", zap.Error(err), zap.String("job_id", jobID.String()))

		dispatchErr := domain.ErrPublishFailed
		if errors.Is(err, domain.ErrQueueFull) {
			dispatchErr = domain.ErrQueueFull
		}
		// the job will never run, so close it out
		job.State = domain.StateFailed
		job.Error = dispatchErr.Error()
		job.Message = "Dispatch failed"
		if uerr := uc.repo.Update(ctx, job); uerr != nil {
			uc.logger.Warn("Failed to mark undispatched job", zap.Error(uerr), zap.String("job_id", jobID.String()))
		}
		metrics.JobsFinished.WithLabelValues(string(domain.StateFailed), "dispatch").Inc()
		return nil, dispatchErr
	}

	if uc.sweeper != nil {
		uc.sweeper.Trigger()
	}

	uc.logger.Info("Job submitted successfully",
		zap.String("job_id", jobID.String()),
		zap.String("query", params.Query),
		zap.String("language", string(params.Language)),
		zap.String("source", string(params.Source)),
	)

	return &domain.SubmitResponse{
		JobID: jobID,
		State: domain.StatePending,
	}, nil
}
