package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// Redis is a Store backed by a Redis instance. TTL enforcement is
// delegated to the server.
type Redis struct {
	client *redis.Client
}

// RedisOptions configures the Redis store.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedis creates a Redis store and verifies connectivity.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, eris.Wrapf(err, "cache: ping redis %s", opts.Addr)
	}
	return &Redis{client: client}, nil
}

// Get returns the stored value, or a miss for absent or expired keys.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrapf(err, "cache: get %s", key)
	}
	return val, true, nil
}

// Set stores value under key for the given TTL.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return eris.Wrapf(err, "cache: set %s", key)
	}
	return nil
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
