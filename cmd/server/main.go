package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Harsh-BH/reviewlens/internal/app"
	"github.com/Harsh-BH/reviewlens/internal/config"
	handler "github.com/Harsh-BH/reviewlens/internal/delivery/http"
	"github.com/Harsh-BH/reviewlens/internal/delivery/http/middleware"
	"github.com/Harsh-BH/reviewlens/internal/pool"
	"github.com/Harsh-BH/reviewlens/internal/publisher"
	"github.com/Harsh-BH/reviewlens/internal/scheduler"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	logger.Info("Starting ReviewLens API Server")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	if err := scheduler.ValidateSchedule(cfg.Jobs.SweepSchedule); err != nil {
		logger.Fatal("Invalid sweep schedule", zap.Error(err))
	}

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server exited with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("Server exited gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	components, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	g, gctx := errgroup.WithContext(ctx)

	// Dispatch: either an in-process pool or RabbitMQ for separate workers.
	var pub publisher.Publisher
	var workers *pool.WorkerPool
	switch cfg.Dispatch.Mode {
	case config.DispatchAMQP:
		pub, err = publisher.NewRabbitMQPublisher(cfg.Dispatch.RabbitMQURL, logger)
		if err != nil {
			return fmt.Errorf("connect to RabbitMQ: %w", err)
		}
		logger.Info("Connected to RabbitMQ")
	default:
		local := publisher.NewLocal(cfg.Dispatch.QueueSize)
		pub = local
		workers = pool.NewWorkerPool(cfg.Dispatch.PoolSize, local.Jobs(), components.ExecuteJob(), logger)
		workers.Start(context.WithoutCancel(gctx))
	}

	// Retention sweep
	sched := scheduler.New(logger)
	if err := sched.Add("job-retention", cfg.Jobs.SweepSchedule, components.Sweeper.Run); err != nil {
		return err
	}
	sched.Start()

	router := handler.NewRouter(handler.RouterDeps{
		SubmitJob:   components.SubmitJob(pub),
		GetJob:      components.GetJob(),
		Sources:     components.Sources,
		Languages:   components.Extractor.Languages(),
		Checks:      components.Checks,
		RateLimiter: middleware.NewIPRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst),
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g.Go(func() error {
		logger.Info("API server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if err := sched.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("scheduler stop: %w", err))
		}
		// Closing the publisher closes the local queue, so workers drain and exit.
		if err := pub.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher close: %w", err))
		}
		if workers != nil {
			workers.Stop()
		}
		components.Sweeper.Wait()
		return errors.Join(errs...)
	})

	return g.Wait()
}
