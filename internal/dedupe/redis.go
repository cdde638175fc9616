package dedupe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "revoice:inflight:"

// releaseScript deletes the key only while it still holds the caller's job.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// RedisClient is the subset of *redis.Client the guard uses.
type RedisClient interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
	Close() error
}

// Redis shares reservations between daemons through Redis.
type Redis struct {
	client RedisClient
	ttl    time.Duration
}

// NewRedis wraps client. ttl <= 0 means no expiry.
func NewRedis(client RedisClient, ttl time.Duration) *Redis {
	if ttl < 0 {
		ttl = 0
	}
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Reserve(ctx context.Context, key, jobID string) (string, bool, error) {
	k := keyPrefix + key
	// the holder can expire between SETNX and GET, so try twice
	for range 2 {
		ok, err := r.client.SetNX(ctx, k, jobID, r.ttl).Result()
		if err != nil {
			return "", false, fmt.Errorf("dedupe reserve: %w", err)
		}
		if ok {
			return jobID, true, nil
		}
		holder, err := r.client.Get(ctx, k).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("dedupe holder: %w", err)
		}
		return holder, holder == jobID, nil
	}
	return "", false, fmt.Errorf("dedupe reserve: key %s churned", key)
}

func (r *Redis) Release(ctx context.Context, key, jobID string) error {
	if err := r.client.Eval(ctx, releaseScript, []string{keyPrefix + key}, jobID).Err(); err != nil {
		return fmt.Errorf("dedupe release: %w", err)
	}
	return nil
}

func (r *Redis) Close() error { return r.client.Close() }
