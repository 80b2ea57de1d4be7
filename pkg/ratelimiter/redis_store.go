package ratelimiter

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// consumeScript implements the token bucket atomically server-side so that
// concurrent requests across instances never double-spend tokens.
//
// KEYS[1] - bucket key
// ARGV[1] - capacity
// ARGV[2] - refill rate (tokens per interval)
// ARGV[3] - refill interval (milliseconds)
// ARGV[4] - now (unix milliseconds)
// ARGV[5] - tokens to consume
//
// Returns {remaining, reset_at_ms}.
var consumeScript = redis.NewScript(`
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local interval = tonumber(ARGV[3])
local now = tonumber(ARGV[4])
local consume = tonumber(ARGV[5])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'last_refill')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil then
  tokens = capacity
  last_refill = now
end

local elapsed = now - last_refill
local max_intervals = math.floor(capacity / rate) + 1
local intervals = math.floor(elapsed / interval)
if intervals > max_intervals then
  intervals = max_intervals
end

if intervals > 0 then
  tokens = math.min(tokens + intervals * rate, capacity)
  last_refill = now
end

tokens = tokens - consume

redis.call('HSET', KEYS[1], 'tokens', tokens, 'last_refill', last_refill)
redis.call('PEXPIRE', KEYS[1], interval * (max_intervals + 1))

return {tokens, last_refill + interval}
`)

// RedisStore implements the Store interface on a shared Redis instance so
// that limits hold across all API instances.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisStore creates a Redis-backed rate limit store. Keys are prefixed
// with "ratelimit:" plus the optional extra prefix.
func NewRedisStore(client redis.UniversalClient, keyPrefix string) *RedisStore {
	return &RedisStore{
		client:    client,
		keyPrefix: "ratelimit:" + keyPrefix,
	}
}

// ConsumeTokens attempts to consume tokens from the bucket.
func (rs *RedisStore) ConsumeTokens(ctx context.Context, key string, tokens int, config Config) (int, time.Time, error) {
	now := time.Now()
	res, err := consumeScript.Run(ctx, rs.client, []string{rs.keyPrefix + key},
		config.Capacity,
		config.RefillRate,
		config.RefillInterval.Milliseconds(),
		now.UnixMilli(),
		tokens,
	).Int64Slice()
	if err != nil {
		return 0, time.Time{}, errors.Join(ErrStoreUnavailable, err)
	}
	if len(res) != 2 {
		return 0, time.Time{}, ErrStoreUnavailable
	}

	return int(res[0]), time.UnixMilli(res[1]), nil
}

// Reset clears the rate limit state for the given key.
func (rs *RedisStore) Reset(ctx context.Context, key string) error {
	if err := rs.client.Del(ctx, rs.keyPrefix+key).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}
