package usecase

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Harsh-BH/reviewlens/internal/metrics"
	"github.com/Harsh-BH/reviewlens/internal/repository"
)

const (
	// DefaultRetention is how long a job survives after creation.
	DefaultRetention = 24 * time.Hour

	defaultSweepInterval = time.Minute
	sweepTimeout         = 30 * time.Second
)

// Sweeper deletes jobs older than the retention window.
type Sweeper struct {
	repo        repository.JobRepository
	retention   time.Duration
	minInterval time.Duration
	logger      *zap.Logger
	now         func() time.Time

	mu      sync.Mutex
	last    time.Time
	running bool
	wg      sync.WaitGroup
}

// NewSweeper creates a Sweeper. Trigger runs at most once per minInterval.
func NewSweeper(repo repository.JobRepository, retention, minInterval time.Duration, logger *zap.Logger) *Sweeper {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if minInterval <= 0 {
		minInterval = defaultSweepInterval
	}
	return &Sweeper{
		repo:        repo,
		retention:   retention,
		minInterval: minInterval,
		logger:      logger,
		now:         time.Now,
	}
}

// Run deletes every job created before now minus the retention window.
func (s *Sweeper) Run(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.retention)
	n, err := s.repo.DeleteCreatedBefore(ctx, cutoff)
	if n > 0 {
		metrics.JobsSwept.Add(float64(n))
	}
	if err != nil {
		s.logger.Warn("Job sweep failed", zap.Int("deleted", n), zap.Error(err))
		return n, err
	}
	if n > 0 {
		s.logger.Info("Expired jobs swept", zap.Int("deleted", n), zap.Time("cutoff", cutoff))
	}
	return n, nil
}

// Trigger starts a background sweep unless one is running or one ran recently.
func (s *Sweeper) Trigger() {
	s.mu.Lock()
	now := s.now()
	if s.running || now.Sub(s.last) < s.minInterval {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.last = now
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}()
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		_, _ = s.Run(ctx)
	}()
}

// Wait blocks until triggered sweeps have finished.
func (s *Sweeper) Wait() {
	s.wg.Wait()
}
