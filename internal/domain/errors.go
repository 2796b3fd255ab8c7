package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is the root of all submission validation errors.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEmptyQuery is returned when the search query is blank.
	ErrEmptyQuery = fmt.Errorf("%w: query cannot be empty", ErrInvalidArgument)

	// ErrInvalidLanguage is returned when an unsupported language is submitted.
	ErrInvalidLanguage = fmt.Errorf("%w: invalid or unsupported language", ErrInvalidArgument)

	// ErrInvalidRegion is returned when the region is not a two-letter country code.
	ErrInvalidRegion = fmt.Errorf("%w: region must be a two-letter country code", ErrInvalidArgument)

	// ErrInvalidSource is returned when the source selector is unknown.
	ErrInvalidSource = fmt.Errorf("%w: invalid or unsupported source", ErrInvalidArgument)

	// ErrJobNotFound is returned when a job cannot be found by ID.
	ErrJobNotFound = errors.New("job not found")

	// ErrSubjectNotFound is returned when the source has no match for the query.
	ErrSubjectNotFound = errors.New("no matching app found")

	// ErrUpstreamUnavailable is returned when the source keeps failing after retries.
	ErrUpstreamUnavailable = errors.New("review source unavailable")

	// ErrExtractionFailure is returned when the remote summarizer produced nothing usable.
	ErrExtractionFailure = errors.New("remote extraction failed")

	// ErrNoRecords is returned when collection finished without a single review.
	ErrNoRecords = errors.New("no reviews collected")

	// ErrRateLimitExceeded is returned when API rate limit is hit.
	ErrRateLimitExceeded = errors.New("rate limit exceeded, try again later")

	// ErrPublishFailed is returned when the message broker publish fails.
	ErrPublishFailed = errors.New("failed to publish job to message queue")

	// ErrQueueFull is returned when the in-process work queue is saturated.
	ErrQueueFull = errors.New("job queue is full, try again later")

	// ErrLockNotAcquired is returned when another worker already owns the job.
	ErrLockNotAcquired = errors.New("job is already being processed")
)

