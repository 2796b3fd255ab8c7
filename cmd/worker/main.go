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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Harsh-BH/reviewlens/internal/app"
	"github.com/Harsh-BH/reviewlens/internal/config"
	amqpdelivery "github.com/Harsh-BH/reviewlens/internal/delivery/amqp"
	"github.com/Harsh-BH/reviewlens/internal/domain"
	"github.com/Harsh-BH/reviewlens/internal/pool"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	logger.Info("Starting ReviewLens Analysis Worker")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	if cfg.Dispatch.Mode != config.DispatchAMQP {
		logger.Fatal("The standalone worker requires DISPATCH_MODE=amqp", zap.String("mode", cfg.Dispatch.Mode))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Worker exited with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("Worker stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	components, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	// Create buffered job channel
	jobsChan := make(chan *domain.JobMessage, cfg.Dispatch.PoolSize)

	// Initialize AMQP consumer
	consumer, err := amqpdelivery.NewConsumer(cfg.Dispatch.RabbitMQURL, cfg.Dispatch.PoolSize, jobsChan, logger)
	if err != nil {
		return fmt.Errorf("initialize AMQP consumer: %w", err)
	}
	defer consumer.Close()
	logger.Info("Connected to RabbitMQ")

	g, gctx := errgroup.WithContext(ctx)

	// Start worker pool. In-flight jobs finish even after shutdown begins.
	workerPool := pool.NewWorkerPool(cfg.Dispatch.PoolSize, jobsChan, components.ExecuteJob(), logger)
	workerPool.Start(gctx)

	g.Go(func() error {
		if err := consumer.Start(gctx); err != nil {
			return fmt.Errorf("AMQP consumer: %w", err)
		}
		return nil
	})

	// Start Prometheus metrics server
	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler:           metricsMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		logger.Info("Metrics server listening", zap.String("addr", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down worker...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	// Wait for workers to finish in-flight jobs
	workerPool.Stop()
	return err
}

func metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
