package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Harsh-BH/reviewlens/internal/domain"
	"github.com/Harsh-BH/reviewlens/internal/metrics"
)

const cacheKeyPrefix = "reviewlens:cache:"

// Redis shares cached results between API servers and workers. Expiry is delegated to
// the key TTL. Failures only cost a miss.
type Redis struct {
	client goredis.UniversalClient
	ttl    time.Duration
	logger *zap.Logger
}

var _ ResultCache = (*Redis)(nil)

// NewRedis creates a Redis-backed result cache.
func NewRedis(client goredis.UniversalClient, ttl time.Duration, logger *zap.Logger) *Redis {
	return &Redis{client: client, ttl: ttl, logger: logger}
}

func (r *Redis) Get(ctx context.Context, key string) (*domain.AnalysisResult, bool) {
	raw, err := r.client.Get(ctx, cacheKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			r.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		}
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	var v domain.AnalysisResult
	if err := json.Unmarshal(raw, &v); err != nil {
		r.logger.Warn("Cache entry corrupt", zap.String("key", key), zap.Error(err))
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return &v, true
}

func (r *Redis) Set(ctx context.Context, key string, v *domain.AnalysisResult) {
	if v == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		r.logger.Warn("Cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := r.client.Set(ctx, cacheKeyPrefix+key, raw, r.ttl).Err(); err != nil {
		r.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}
