package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// KeyPrefix namespaces the sorted sets holding admitted timestamps
const KeyPrefix = "megafacil:ratelimit:"

// slidingWindowScript prunes, counts and admits atomically. Scores are unix milliseconds.
// Returns {1, 0} when admitted, {0, oldestScore} when rejected.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', '(' .. (now - window))

if redis.call('ZCARD', key) >= max then
	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	return {0, tonumber(oldest[2])}
end

redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return {1, 0}
`)

// RedisSlidingWindow shares the sliding-window log between processes through Redis.
// Each key is one sorted set updated by a single script call, so concurrent
// callers for the same key are serialized by Redis itself.
type RedisSlidingWindow struct {
	client      redis.UniversalClient
	maxRequests int
	window      time.Duration
	now         Clock
}

// NewRedisClient connects to the Redis server at the given URL
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

// NewRedisSlidingWindow creates a Redis-backed limiter admitting maxRequests per trailing window
func NewRedisSlidingWindow(client redis.UniversalClient, maxRequests int, window time.Duration) (*RedisSlidingWindow, error) {
	if maxRequests < 1 {
		return nil, fmt.Errorf("max requests must be positive, got %d", maxRequests)
	}
	if window < time.Millisecond {
		return nil, fmt.Errorf("window must be at least 1ms, got %s", window)
	}

	return &RedisSlidingWindow{
		client:      client,
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}, nil
}

// WithClock replaces the time source, for tests
func (r *RedisSlidingWindow) WithClock(clock Clock) *RedisSlidingWindow {
	r.now = clock
	return r
}

// Allow admits the request when fewer than maxRequests were admitted in the trailing window
func (r *RedisSlidingWindow) Allow(ctx context.Context, key string) (Decision, error) {
	now := r.now()

	res, err := slidingWindowScript.Run(ctx, r.client,
		[]string{KeyPrefix + key},
		now.UnixMilli(),
		r.window.Milliseconds(),
		r.maxRequests,
		uuid.NewString(),
	).Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("failed to evaluate rate limit for %q: %w", key, err)
	}

	allowed, oldestMillis, err := parseReply(res)
	if err != nil {
		return Decision{}, err
	}
	if allowed {
		return Decision{Allowed: true}, nil
	}

	oldest := time.UnixMilli(oldestMillis)
	return Decision{
		Allowed:           false,
		RetryAfterSeconds: retryAfter(oldest, r.window, now),
	}, nil
}

func parseReply(res []interface{}) (bool, int64, error) {
	if len(res) != 2 {
		return false, 0, fmt.Errorf("unexpected rate limit script reply %v", res)
	}
	flag, ok1 := res[0].(int64)
	oldest, ok2 := res[1].(int64)
	if !ok1 || !ok2 {
		return false, 0, fmt.Errorf("unexpected rate limit script reply %v", res)
	}
	return flag == 1, oldest, nil
}
