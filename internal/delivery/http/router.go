package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Harsh-BH/reviewlens/internal/delivery/http/middleware"
	"github.com/Harsh-BH/reviewlens/internal/domain"
	"github.com/Harsh-BH/reviewlens/internal/source"
	"github.com/Harsh-BH/reviewlens/internal/usecase"
)

const maxBodyBytes = 64 << 10

// RouterDeps carries everything the API routes need.
type RouterDeps struct {
	SubmitJob      *usecase.SubmitJobUsecase
	GetJob         *usecase.GetJobUsecase
	Sources        *source.Registry
	Languages      []domain.LanguageInfo
	Checks         map[string]Checker
	RateLimiter    *middleware.IPRateLimiter
	StreamInterval time.Duration
	Logger         *zap.Logger
}

// NewRouter creates and configures the Gin router with all routes and middleware.
func NewRouter(d RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(d.Logger))

	// Probes and metrics (no rate limiting)
	health := NewHealthHandler(d.Checks, d.Logger)
	router.GET("/health", health.Health)
	router.GET("/ready", health.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		catalog := NewCatalogHandler(d.Languages, d.Sources)
		v1.GET("/languages", catalog.Languages)
		v1.GET("/sources", catalog.Sources)

		jobs := NewJobHandler(d.SubmitJob, d.GetJob, d.Logger)
		submit := []gin.HandlerFunc{middleware.BodySizeLimit(maxBodyBytes)}
		if d.RateLimiter != nil {
			submit = append(submit, middleware.RateLimiter(d.RateLimiter))
		}
		v1.POST("/jobs", append(submit, jobs.Submit)...)
		v1.GET("/jobs/:id", jobs.GetByID)

		// WebSocket for real-time updates
		ws := NewWebSocketHandler(d.GetJob, d.StreamInterval, d.Logger)
		v1.GET("/jobs/:id/stream", ws.Stream)
	}

	return router
}
