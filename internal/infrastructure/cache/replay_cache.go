package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"wallet-ledger.backend/internal/domain/entities"
	"wallet-ledger.backend/pkg/logger"
	"wallet-ledger.backend/pkg/redis"
)

const replayKeyPrefix = "ledger:idem"

// ReplayCache keeps COMPLETED idempotency records in redis so retries of a
// finished request can be answered without opening a transaction. The
// database stays the source of truth.
type ReplayCache struct {
	ttl time.Duration
}

// NewReplayCache creates a replay cache on top of the shared redis client
func NewReplayCache(ttl time.Duration) *ReplayCache {
	return &ReplayCache{ttl: ttl}
}

func replayKey(key entities.IdempotencyKey) string {
	return fmt.Sprintf("%s:%s:%s:%s", replayKeyPrefix, key.Scope, key.ScopeRef, key.Key)
}

// Get returns the cached record, or nil on a miss
func (c *ReplayCache) Get(ctx context.Context, key entities.IdempotencyKey) (*entities.IdempotencyRecord, error) {
	raw, err := redis.Get(ctx, replayKey(key))
	if err != nil {
		if redis.IsNil(err) {
			return nil, nil
		}
		return nil, err
	}

	var rec entities.IdempotencyRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil || !rec.IsCompleted() || rec.NaturalKey() != key {
		logger.Warn(ctx, "Dropping unusable replay cache entry", zap.String("key", replayKey(key)))
		_ = redis.Del(ctx, replayKey(key))
		return nil, nil
	}
	return &rec, nil
}

// Put caches a completed record. The first write wins: a completed record
// never changes, so there is nothing to overwrite.
func (c *ReplayCache) Put(ctx context.Context, record *entities.IdempotencyRecord) error {
	if record == nil || !record.IsCompleted() {
		return nil
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	_, err = redis.SetNX(ctx, replayKey(record.NaturalKey()), payload, c.ttl)
	return err
}
