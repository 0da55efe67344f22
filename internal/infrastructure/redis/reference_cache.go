package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"rampcore/internal/application"
)

const refPrefix = "ref:"

// ReferenceCache holds provider reference data (asset lists) for a fixed
// window; callers repopulate lazily on miss.
type ReferenceCache struct {
	Client *redis.Client
	TTL    time.Duration
}

var _ application.ReferenceCache = (*ReferenceCache)(nil)

func NewReferenceCache(client *redis.Client, ttl time.Duration) *ReferenceCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ReferenceCache{Client: client, TTL: ttl}
}

func (c *ReferenceCache) Get(ctx context.Context, key string, out any) (bool, error) {
	raw, err := c.Client.Get(ctx, refPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("refcache: decode %s: %w", key, err)
	}
	return true, nil
}

func (c *ReferenceCache) Set(ctx context.Context, key string, val any) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("refcache: encode %s: %w", key, err)
	}
	return c.Client.Set(ctx, refPrefix+key, raw, c.TTL).Err()
}
