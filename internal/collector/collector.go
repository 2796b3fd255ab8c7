// Package collector pages through a review source politely and without duplicates.
package collector

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/Harsh-BH/reviewlens/internal/domain"
	"github.com/Harsh-BH/reviewlens/internal/metrics"
	"github.com/Harsh-BH/reviewlens/internal/progress"
	"github.com/Harsh-BH/reviewlens/internal/ratelimit"
	"github.com/Harsh-BH/reviewlens/internal/retry"
	"github.com/Harsh-BH/reviewlens/internal/source"
)

// Config bounds a single collection run.
type Config struct {
	MaxPages      int
	MaxRecords    int
	PageSize      int
	PageDelay     time.Duration
	JitterPercent int
}

// DefaultConfig keeps collection to five pages and 150 reviews.
func DefaultConfig() Config {
	return Config{
		MaxPages:      5,
		MaxRecords:    150,
		PageSize:      50,
		PageDelay:     time.Second,
		JitterPercent: 30,
	}
}

// Collector fetches pages through a shared limiter and retry policy.
type Collector struct {
	cfg     Config
	limiter ratelimit.Limiter
	policy  retry.Policy
	sleep   func(ctx context.Context, d time.Duration) error
	logger  *zap.Logger
}

// New creates a Collector. limiter must be shared by every collector using the same source.
func New(cfg Config, limiter ratelimit.Limiter, policy retry.Policy, logger *zap.Logger) *Collector {
	def := DefaultConfig()
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = def.MaxPages
	}
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = def.MaxRecords
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	return &Collector{
		cfg:     cfg,
		limiter: limiter,
		policy:  policy,
		sleep:   ratelimit.Sleep,
		logger:  logger,
	}
}

// WithSleep overrides the inter-page delay, used by tests.
func (c *Collector) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *Collector {
	c.sleep = sleep
	return c
}

// FetchAll collects reviews for subjectID. When a page fails after retries the records
// gathered so far are returned together with an error wrapping ErrUpstreamUnavailable.
func (c *Collector) FetchAll(ctx context.Context, client source.Client, subjectID, region string, rep progress.Reporter) ([]domain.Record, error) {
	if rep == nil {
		rep = progress.Nop
	}
	kind := string(client.Kind())
	logger := c.logger.With(zap.String("source", kind), zap.String("subject_id", subjectID))

	seen := make(map[string]struct{})
	records := make([]domain.Record, 0, c.cfg.MaxRecords)
	var failure error

	for page := 1; page <= c.cfg.MaxPages; page++ {
		if page > 1 {
			if err := c.sleep(ctx, c.jitteredDelay()); err != nil {
				failure = err
				break
			}
		}

		batch, err := c.fetchPage(ctx, client, subjectID, region, page, logger)
		if err != nil {
			metrics.PageFailures.WithLabelValues(kind).Inc()
			logger.Warn("Page failed, keeping partial results",
				zap.Int("page", page),
				zap.Int("collected", len(records)),
				zap.Error(err),
			)
			failure = fmt.Errorf("%w: page %d: %w", domain.ErrUpstreamUnavailable, page, err)
			break
		}
		metrics.PagesFetched.WithLabelValues(kind).Inc()

		added := 0
		for _, r := range batch {
			if _, dup := seen[r.ID]; dup || r.ID == "" {
				continue
			}
			seen[r.ID] = struct{}{}
			records = append(records, r)
			added++
			if len(records) >= c.cfg.MaxRecords {
				break
			}
		}
		metrics.RecordsCollected.WithLabelValues(kind).Add(float64(added))

		rep.Report(ctx, page*100/c.cfg.MaxPages, fmt.Sprintf("Fetched page %d, %d reviews", page, len(records)))

		if len(batch) == 0 || len(batch) < c.cfg.PageSize || len(records) >= c.cfg.MaxRecords {
			break
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].Timestamp.After(records[j].Timestamp)
		}
		return records[i].ID < records[j].ID
	})

	rep.Report(ctx, 100, fmt.Sprintf("Collected %d reviews", len(records)))
	logger.Info("Collection finished", zap.Int("records", len(records)), zap.Bool("partial", failure != nil))
	return records, failure
}

// Search resolves term through the same limiter and retry policy used for pages.
// A missing subject is never retried.
func (c *Collector) Search(ctx context.Context, client source.Client, term string, lang domain.Language, region string) (*domain.SubjectInfo, error) {
	policy := c.policy
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		c.logger.Warn("Retrying search",
			zap.String("query", term),
			zap.Int("attempt", attempt),
			zap.Duration("wait", delay),
			zap.Error(err),
		)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return retry.Do(ctx, policy, func(ctx context.Context) (*domain.SubjectInfo, error) {
		info, err := client.Search(ctx, term, lang, region)
		if errors.Is(err, domain.ErrSubjectNotFound) {
			return nil, retry.Permanent(err)
		}
		return info, err
	})
}

func (c *Collector) fetchPage(ctx context.Context, client source.Client, subjectID, region string, page int, logger *zap.Logger) ([]domain.Record, error) {
	policy := c.policy
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		logger.Warn("Retrying page",
			zap.Int("page", page),
			zap.Int("attempt", attempt),
			zap.Duration("wait", delay),
			zap.Error(err),
		)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return retry.Do(ctx, policy, func(ctx context.Context) ([]domain.Record, error) {
		return client.FetchPage(ctx, subjectID, region, page, c.cfg.PageSize)
	})
}

// jitteredDelay is PageDelay varied by up to JitterPercent in either direction.
func (c *Collector) jitteredDelay() time.Duration {
	base := c.cfg.PageDelay
	if base <= 0 || c.cfg.JitterPercent <= 0 {
		return base
	}
	spread := int64(base) * int64(c.cfg.JitterPercent) / 100
	if spread <= 0 {
		return base
	}
	return base + time.Duration(rand.Int64N(2*spread+1)-spread)
}
