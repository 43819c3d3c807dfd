package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis timeouts applied by NewRedisClient.
const (
	redisDialTimeout  = 3 * time.Second
	redisReadTimeout  = 2 * time.Second
	redisWriteTimeout = 2 * time.Second
	redisPingTimeout  = 2 * time.Second
)

// NewRedisClient parses a redis:// URL, tunes the pool, and pings once so
// bootstrap fails fast on a bad address.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("storage: invalid redis URL: %w", err)
	}
	opts.PoolSize = 10
	opts.MinIdleConns = 2
	opts.DialTimeout = redisDialTimeout
	opts.ReadTimeout = redisReadTimeout
	opts.WriteTimeout = redisWriteTimeout

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("storage: redis ping: %w", err)
	}
	return client, nil
}

// Redis stores keys as plain strings.  When ttl > 0 every write refreshes
// the key's expiry, so abandoned browsers age out on their own.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrInvalidKey
	}
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("storage: redis get: %w", err)
	}
	return val, true, nil
}

// SetMany wraps the writes in MULTI/EXEC so readers never see half a pair.
func (r *Redis) SetMany(ctx context.Context, kv map[string]string) error {
	for k := range kv {
		if k == "" {
			return ErrInvalidKey
		}
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range kv {
			pipe.Set(ctx, k, v, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("storage: redis set: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("storage: redis del: %w", err)
	}
	return nil
}
