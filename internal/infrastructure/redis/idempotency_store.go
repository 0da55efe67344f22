package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"rampcore/internal/application"
)

// IdempotencyStore reserves checkout keys with SetNX so a retried request
// cannot open a second provider session.
type IdempotencyStore struct {
	Client *redis.Client
	TTL    time.Duration
}

var _ application.IdempotencyStore = (*IdempotencyStore)(nil)

func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{Client: client, TTL: ttl}
}

func (s *IdempotencyStore) TryReserve(ctx context.Context, key string) (bool, error) {
	ok, err := s.Client.SetNX(ctx, key, "1", s.TTL).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.Client.Del(ctx, key).Err()
}
