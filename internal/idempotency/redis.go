// Package idempotency remembers the result of a client-keyed request so a
// retried checkout returns the first order instead of failing on an empty cart.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrInProgress means another request with the same key holds the lock and
// has not finished yet.
var ErrInProgress = errors.New("request with this idempotency key is in progress")

type Store interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Release(ctx context.Context, scope, key string) error
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
}

type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func lockKey(scope, key string) string   { return "idemp:" + scope + ":" + key }
func resultKey(scope, key string) string { return "idemp:map:" + scope + ":" + key }

func (s *RedisStore) TryLock(ctx context.Context, scope, key string) (bool, error) {
	return s.rdb.SetNX(ctx, lockKey(scope, key), "1", s.ttl).Result()
}

func (s *RedisStore) Release(ctx context.Context, scope, key string) error {
	return s.rdb.Del(ctx, lockKey(scope, key)).Err()
}

func (s *RedisStore) Remember(ctx context.Context, scope, key, value string) error {
	return s.rdb.Set(ctx, resultKey(scope, key), value, s.ttl).Err()
}

func (s *RedisStore) Recall(ctx context.Context, scope, key string) (string, bool, error) {
	val, err := s.rdb.Get(ctx, resultKey(scope, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

var _ Store = (*RedisStore)(nil)

// Do runs fn at most once per (scope, key). A repeated call returns the
// remembered value with replayed set. When fn fails the lock is released so
// the client may try again with the same key.
func Do(ctx context.Context, s Store, scope, key string, fn func() (string, error)) (value string, replayed bool, err error) {
	if v, ok, err := s.Recall(ctx, scope, key); err != nil {
		return "", false, err
	} else if ok {
		return v, true, nil
	}

	locked, err := s.TryLock(ctx, scope, key)
	if err != nil {
		return "", false, err
	}
	if !locked {
		if v, ok, err := s.Recall(ctx, scope, key); err == nil && ok {
			return v, true, nil
		}
		return "", false, ErrInProgress
	}

	v, err := fn()
	if err != nil {
		_ = s.Release(ctx, scope, key)
		return "", false, err
	}
	if err := s.Remember(ctx, scope, key, v); err != nil {
		return v, false, err
	}
	return v, false, nil
}
