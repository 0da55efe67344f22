// Package redisstore keeps the engine's short-lived state in Redis: the one
// pending transaction per (session, direction), the 24h provider reference
// cache, and checkout idempotency reservations.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"rampcore/internal/application"
	"rampcore/internal/domain"
)

const pendingPrefix = "pending:"

// PendingStore persists pending transactions under
// pending:{sessionID}:{direction} with a TTL equal to the staleness bound,
// so Redis expiry and the resume-time staleness check agree.
type PendingStore struct {
	Client *redis.Client
	TTL    time.Duration
}

var _ application.PendingStore = (*PendingStore)(nil)

func NewPendingStore(client *redis.Client, ttl time.Duration) *PendingStore {
	return &PendingStore{Client: client, TTL: ttl}
}

func pendingKey(sessionID string, dir domain.Direction) string {
	return pendingPrefix + sessionID + ":" + string(dir)
}

func (s *PendingStore) Save(ctx context.Context, sessionID string, tx domain.PendingTransaction) error {
	raw, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("pending: encode: %w", err)
	}
	return s.Client.Set(ctx, pendingKey(sessionID, tx.Direction), raw, s.TTL).Err()
}

func (s *PendingStore) Get(ctx context.Context, sessionID string, dir domain.Direction) (domain.PendingTransaction, error) {
	raw, err := s.Client.Get(ctx, pendingKey(sessionID, dir)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.PendingTransaction{}, application.ErrNotFound
	}
	if err != nil {
		return domain.PendingTransaction{}, err
	}
	var tx domain.PendingTransaction
	if err := json.Unmarshal(raw, &tx); err != nil {
		return domain.PendingTransaction{}, fmt.Errorf("pending: decode: %w", err)
	}
	return tx, nil
}

// UpdateState rewrites the stored record in place. KeepTTL preserves the
// original staleness deadline; a status update must not extend a
// transaction's life.
func (s *PendingStore) UpdateState(ctx context.Context, sessionID string, dir domain.Direction, st domain.TransactionState) error {
	tx, err := s.Get(ctx, sessionID, dir)
	if err != nil {
		return err
	}
	tx.Status = st.Status
	tx.Phase = st.Phase
	raw, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("pending: encode: %w", err)
	}
	return s.Client.Set(ctx, pendingKey(sessionID, dir), raw, redis.KeepTTL).Err()
}

func (s *PendingStore) Delete(ctx context.Context, sessionID string, dir domain.Direction) error {
	return s.Client.Del(ctx, pendingKey(sessionID, dir)).Err()
}

// ListAll scans every pending record, grouped by session. Used once at
// startup to resume polling.
func (s *PendingStore) ListAll(ctx context.Context) (map[string][]domain.PendingTransaction, error) {
	out := make(map[string][]domain.PendingTransaction)
	iter := s.Client.Scan(ctx, 0, pendingPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		raw, err := s.Client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			// Expired between SCAN and GET.
			continue
		}
		if err != nil {
			return nil, err
		}
		var tx domain.PendingTransaction
		if err := json.Unmarshal(raw, &tx); err != nil {
			return nil, fmt.Errorf("pending: decode %s: %w", key, err)
		}
		sessionID := sessionFromKey(key)
		out[sessionID] = append(out[sessionID], tx)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func sessionFromKey(key string) string {
	trimmed := strings.TrimPrefix(key, pendingPrefix)
	if i := strings.LastIndexByte(trimmed, ':'); i >= 0 {
		return trimmed[:i]
	}
	return trimmed
}
