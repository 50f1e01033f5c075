package ratelimit

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore backs windows with a shared Redis so every replica consumes
// from the same quota. Records expire server-side; Sweep is a no-op.
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &RedisStore{client: client, prefix: "ratelimit:"}, nil
}

func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	full := s.prefix + key
	count, err := s.client.Incr(ctx, full).Result()
	if err != nil {
		return 0, time.Time{}, err
	}
	if count == 1 {
		if err := s.client.PExpire(ctx, full, window).Err(); err != nil {
			return 0, time.Time{}, err
		}
		return int(count), time.Now().Add(window), nil
	}
	ttl, err := s.client.PTTL(ctx, full).Result()
	if err != nil || ttl < 0 {
		// Counter lost its expiry (e.g. partial failure); restore it.
		_ = s.client.PExpire(ctx, full, window).Err()
		ttl = window
	}
	return int(count), time.Now().Add(ttl), nil
}

func (s *RedisStore) Sweep(ctx context.Context, now time.Time) {}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error { return s.client.Close() }
