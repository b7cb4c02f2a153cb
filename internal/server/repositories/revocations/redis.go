// Package revocations tracks refresh tokens that have already been
// exchanged, so each one can be redeemed at most once.
package revocations

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store records token IDs as used.
type Store interface {
	// Consume marks id as used for ttl. It returns true only for the first
	// caller; later calls with the same id return false until ttl passes.
	Consume(ctx context.Context, id string, ttl time.Duration) (bool, error)
}

const minTTL = time.Second

type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "gophauth:rt"
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + ":" + id
}

func (s *RedisStore) Consume(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	if ttl < minTTL {
		ttl = minTTL
	}

	ok, err := s.redis.SetNX(ctx, s.key(id), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}
	return ok, nil
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}
