package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultOpTimeout bounds a single cache round trip.
const DefaultOpTimeout = 250 * time.Millisecond

// Store is the key/value contract the services depend on.
// Get reports found=false with a nil error on a miss.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// RedisStore implements Store on top of go-redis. A RedisStore with a nil
// client behaves as an always-empty cache.
type RedisStore struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedisStore wraps client. A non-positive timeout selects DefaultOpTimeout.
func NewRedisStore(client *redis.Client, timeout time.Duration) *RedisStore {
	if timeout <= 0 {
		timeout = DefaultOpTimeout
	}
	return &RedisStore{client: client, timeout: timeout}
}

// Available reports whether a Redis client is attached.
func (s *RedisStore) Available() bool {
	return s != nil && s.client != nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if !s.Available() {
		return nil, false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	b, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if !s.Available() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if !s.Available() || len(keys) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.client.Del(ctx, keys...).Err()
}
