package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindowScript keeps one sorted set per key whose scores are request
// times in milliseconds.  Eviction, counting and insertion run atomically
// inside Redis, which makes the limiter consistent across instances.
var slidingWindowScript = redis.NewScript(`
    local key = KEYS[1]
    local now_ms = tonumber(ARGV[1])
    local window_ms = tonumber(ARGV[2])
    local limit = tonumber(ARGV[3])
    local member = ARGV[4]

    redis.call('ZREMRANGEBYSCORE', key, '-inf', '(' .. (now_ms - window_ms))
    local count = redis.call('ZCARD', key)
    if count >= limit then
        return { 0, 0 }
    end
    redis.call('ZADD', key, now_ms, member)
    redis.call('PEXPIRE', key, window_ms)
    return { 1, limit - count - 1 }
`)

// RedisSlidingWindow is a Limiter backed by Redis for multi-instance
// deployments.
type RedisSlidingWindow struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	retry  time.Duration
	now    func() time.Time
}

func NewRedisSlidingWindow(rdb *redis.Client, limit int, window, retry time.Duration) *RedisSlidingWindow {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if retry <= 0 {
		retry = window
	}
	return &RedisSlidingWindow{rdb: rdb, limit: limit, window: window, retry: retry, now: time.Now}
}

func (r *RedisSlidingWindow) Allow(ctx context.Context, key string) (Decision, error) {
	vals, err := slidingWindowScript.Run(ctx, r.rdb, []string{key},
		r.now().UnixMilli(),
		r.window.Milliseconds(),
		r.limit,
		uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit script: %w", err)
	}
	if len(vals) != 2 {
		return Decision{}, fmt.Errorf("ratelimit script: unexpected result length %d", len(vals))
	}
	if vals[0] != 1 {
		return Decision{Allowed: false, Limit: r.limit, RetryAfter: r.retry}, nil
	}
	return Decision{Allowed: true, Limit: r.limit, Remaining: int(vals[1])}, nil
}
