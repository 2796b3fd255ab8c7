package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Harsh-BH/reviewlens/internal/metrics"
)

// slidingWindowScript prunes, counts and admits atomically. It returns 0 on admission,
// otherwise the milliseconds until the oldest entry leaves the window.
var slidingWindowScript = goredis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count < limit then
	redis.call('ZADD', key, now, member)
	redis.call('PEXPIRE', key, window)
	return 0
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local wait = tonumber(oldest[2]) + window - now
if wait < 1 then
	wait = 1
end
return wait
`)

const limiterKeyPrefix = "reviewlens:limiter:"

// RedisWindow is a sliding-window limiter shared by every process pointing at the
// same Redis key, so API servers and workers draw from one quota.
type RedisWindow struct {
	client goredis.Scripter
	key    string
	max    int
	window time.Duration
	buffer time.Duration
	sleep  SleepFunc
}

// NewRedisWindow creates a Redis-backed limiter for the named source.
func NewRedisWindow(client goredis.Scripter, name string, max int, window, buffer time.Duration) *RedisWindow {
	if max < 1 {
		max = 1
	}
	return &RedisWindow{
		client: client,
		key:    limiterKeyPrefix + name,
		max:    max,
		window: window,
		buffer: buffer,
		sleep:  Sleep,
	}
}

// Wait blocks until the shared window has room for one more call.
func (l *RedisWindow) Wait(ctx context.Context) error {
	start := time.Now()
	member := uuid.NewString()
	for {
		waitMs, err := slidingWindowScript.Run(ctx, l.client, []string{l.key},
			time.Now().UnixMilli(), l.window.Milliseconds(), l.max, member).Int64()
		if err != nil {
			return fmt.Errorf("redis: limiter: %w", err)
		}
		if waitMs == 0 {
			metrics.LimiterWait.Observe(time.Since(start).Seconds())
			return nil
		}
		if err := l.sleep(ctx, time.Duration(waitMs)*time.Millisecond+l.buffer); err != nil {
			return err
		}
	}
}
