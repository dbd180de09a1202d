package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// checkAndConsumeScript increments the counter, attaches the window TTL on
// the first hit, and reads the remaining TTL — all in one atomic script, so
// a client dying between INCR and EXPIRE can never leave an immortal key.
var checkAndConsumeScript = redis.NewScript(`
	local count = redis.call('INCR', KEYS[1])
	if count == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	local ttl = redis.call('PTTL', KEYS[1])
	return {count, ttl}
`)

// RedisStore is the shared-counter implementation for multi-instance
// deployments. Same fixed-window semantics as MemoryStore.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) CheckAndConsume(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	res, err := checkAndConsumeScript.Run(ctx, s.client, []string{key}, window.Milliseconds()).Result()
	if err != nil {
		return Result{}, err
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return Result{}, fmt.Errorf("unexpected rate limit script reply: %v", res)
	}
	count, _ := vals[0].(int64)
	ttlMS, _ := vals[1].(int64)

	resetIn := window
	if ttlMS > 0 {
		resetIn = time.Duration(ttlMS) * time.Millisecond
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   count <= int64(limit),
		Remaining: remaining,
		ResetIn:   resetIn,
	}, nil
}
