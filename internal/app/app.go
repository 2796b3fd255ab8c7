// Package app assembles the components shared by the API server and the worker.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Harsh-BH/reviewlens/internal/cache"
	"github.com/Harsh-BH/reviewlens/internal/collector"
	"github.com/Harsh-BH/reviewlens/internal/config"
	handler "github.com/Harsh-BH/reviewlens/internal/delivery/http"
	"github.com/Harsh-BH/reviewlens/internal/domain"
	"github.com/Harsh-BH/reviewlens/internal/extractor"
	"github.com/Harsh-BH/reviewlens/internal/publisher"
	"github.com/Harsh-BH/reviewlens/internal/ratelimit"
	"github.com/Harsh-BH/reviewlens/internal/repository"
	badgerrepo "github.com/Harsh-BH/reviewlens/internal/repository/badger"
	"github.com/Harsh-BH/reviewlens/internal/repository/memory"
	"github.com/Harsh-BH/reviewlens/internal/repository/postgres"
	redisrepo "github.com/Harsh-BH/reviewlens/internal/repository/redis"
	"github.com/Harsh-BH/reviewlens/internal/retry"
	"github.com/Harsh-BH/reviewlens/internal/source"
	"github.com/Harsh-BH/reviewlens/internal/source/appstore"
	srcmock "github.com/Harsh-BH/reviewlens/internal/source/mock"
	"github.com/Harsh-BH/reviewlens/internal/summarizer"
	"github.com/Harsh-BH/reviewlens/internal/textclean"
	"github.com/Harsh-BH/reviewlens/internal/usecase"
)

// demoReviewCount is how many synthetic reviews the mock source serves per subject.
const demoReviewCount = 120

// App holds the process-wide components built from configuration.
type App struct {
	Config *config.Config
	Logger *zap.Logger

	Jobs      repository.JobRepository
	Locks     repository.IdempotencyStore
	Sources   *source.Registry
	Extractor *extractor.Extractor
	Analyzer  *summarizer.Analyzer
	Collector *collector.Collector
	Cache     cache.ResultCache
	Sweeper   *usecase.Sweeper

	// Checks feed the readiness probe.
	Checks map[string]handler.Checker

	redis   *goredis.Client
	closers []func() error
}

// New connects to the configured backends and builds every component. On error,
// whatever was already opened is closed.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
		Checks: make(map[string]handler.Checker),
	}
	if err := a.init(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	if a.needsRedis() {
		if err := a.connectRedis(ctx); err != nil {
			return err
		}
	}
	if err := a.openStore(ctx); err != nil {
		return err
	}
	a.openLocks()

	if err := a.buildPipeline(ctx); err != nil {
		return err
	}
	a.Sweeper = usecase.NewSweeper(a.Jobs, a.Config.Jobs.Retention, 0, a.Logger)
	return nil
}

func (a *App) needsRedis() bool {
	c := a.Config
	return c.Store.Backend == config.StoreRedis ||
		c.Limiter.Backend == config.BackendRedis ||
		c.Cache.Backend == config.BackendRedis ||
		c.Dispatch.Mode == config.DispatchAMQP
}

func (a *App) connectRedis(ctx context.Context) error {
	opts, err := goredis.ParseURL(a.Config.Store.RedisURL)
	if err != nil {
		return fmt.Errorf("invalid Redis URL: %w", err)
	}
	client := goredis.NewClient(opts)
	a.closers = append(a.closers, client.Close)
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect to Redis: %w", err)
	}
	a.redis = client
	a.Checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	a.Logger.Info("Connected to Redis")
	return nil
}

func (a *App) openStore(ctx context.Context) error {
	switch a.Config.Store.Backend {
	case config.StoreRedis:
		a.Jobs = redisrepo.NewRedisJobRepository(a.redis)

	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, a.Config.Store.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect to PostgreSQL: %w", err)
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("ping PostgreSQL: %w", err)
		}
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		a.Jobs = postgres.NewPostgresJobRepository(pool)
		a.Checks["postgres"] = pool.Ping
		a.Logger.Info("Connected to PostgreSQL")

	case config.StoreBadger:
		store, err := badgerrepo.Open(a.Config.Store.BadgerPath)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, store.Close)
		a.Jobs = store
		a.Logger.Info("Opened embedded job store", zap.String("path", a.Config.Store.BadgerPath))

	default:
		a.Jobs = memory.NewJobRepository()
	}
	return nil
}

// openLocks uses Redis when several processes may consume the same queue.
func (a *App) openLocks() {
	if a.redis != nil && a.Config.Dispatch.Mode == config.DispatchAMQP {
		a.Locks = redisrepo.NewRedisIdempotencyStore(a.redis, a.Config.Jobs.LockTTL)
		return
	}
	a.Locks = memory.NewIdempotencyStore(a.Config.Jobs.LockTTL)
}

func (a *App) buildPipeline(ctx context.Context) error {
	cfg := a.Config
	logger := a.Logger

	a.Sources = source.NewRegistry(appstore.NewClient(cfg.Collector.AppStoreURL, cfg.Collector.SourceTimeout, logger))
	if cfg.Collector.EnableMock {
		a.Sources.Register(srcmock.NewDemoClient(demoReviewCount))
	}

	cleaner := textclean.New(textclean.Config{
		MinLength:            cfg.Text.MinLength,
		MinLengthLogographic: cfg.Text.MinLengthLogographic,
		MaxLength:            cfg.Text.MaxLength,
		Blocklist:            cfg.Text.Blocklist,
	})
	ext, err := extractor.NewBuiltin(cleaner)
	if err != nil {
		return fmt.Errorf("load dictionaries: %w", err)
	}
	a.Extractor = ext

	model, err := summarizer.NewModel(ctx, summarizer.ModelConfig{
		Provider: cfg.Summarizer.Provider,
		APIKey:   cfg.Summarizer.APIKey,
		Model:    cfg.Summarizer.Model,
		Endpoint: cfg.Summarizer.Endpoint,
		Timeout:  cfg.Summarizer.Timeout,
	})
	if err != nil {
		return err
	}
	var remote *summarizer.Remote
	if model != nil {
		remote = summarizer.NewRemote(model, cfg.Summarizer.MaxRecords, cfg.Summarizer.Timeout, logger)
		logger.Info("Remote summarizer enabled", zap.String("provider", model.Name()))
	}
	a.Analyzer = summarizer.NewAnalyzer(ext, remote, logger)

	var limiter ratelimit.Limiter = ratelimit.NewSlidingWindow(cfg.Limiter.MaxRequests, cfg.Limiter.Window, cfg.Limiter.Buffer)
	if cfg.Limiter.Backend == config.BackendRedis {
		limiter = ratelimit.NewRedisWindow(a.redis, string(domain.SourceAppStore), cfg.Limiter.MaxRequests, cfg.Limiter.Window, cfg.Limiter.Buffer)
	}
	a.Collector = collector.New(collector.Config{
		MaxPages:      cfg.Collector.MaxPages,
		MaxRecords:    cfg.Collector.MaxRecords,
		PageSize:      cfg.Collector.PageSize,
		PageDelay:     cfg.Collector.PageDelay,
		JitterPercent: cfg.Collector.JitterPercent,
	}, limiter, retry.Policy{
		MaxRetries:     cfg.Retry.MaxRetries,
		BaseDelay:      cfg.Retry.BaseDelay,
		MaxJitter:      cfg.Retry.MaxJitter,
		AttemptTimeout: cfg.Collector.SourceTimeout,
	}, logger)

	if cfg.Cache.Backend == config.BackendRedis {
		a.Cache = cache.NewRedis(a.redis, cfg.Cache.TTL, logger)
	} else {
		a.Cache = cache.NewMemory(cfg.Cache.TTL)
	}
	return nil
}

// SubmitJob builds the submission use case around pub.
func (a *App) SubmitJob(pub publisher.Publisher) *usecase.SubmitJobUsecase {
	return usecase.NewSubmitJobUsecase(a.Jobs, pub, a.Sources, a.Sweeper, a.Logger)
}

// GetJob builds the status use case.
func (a *App) GetJob() *usecase.GetJobUsecase {
	return usecase.NewGetJobUsecase(a.Jobs, a.Logger)
}

// ExecuteJob builds the pipeline use case run by workers.
func (a *App) ExecuteJob() *usecase.ExecuteJobUsecase {
	return usecase.NewExecuteJobUsecase(a.Jobs, a.Locks, a.Sources, a.Collector, a.Analyzer, a.Cache, a.Logger)
}

// Close releases every backend in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
