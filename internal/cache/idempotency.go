package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyStore deduplicates order submissions keyed by actor and a
// client-supplied key. Used by the HTTP layer only; the transaction core
// does not depend on it.
type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Remember(ctx context.Context, scope, key string, orderID int64) error
	Recall(ctx context.Context, scope, key string) (int64, bool, error)
}

// RedisIdempotencyStore implements IdempotencyStore on Redis using SetNX
// for the claim and a plain key for the recorded order id.
type RedisIdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisIdempotencyStore creates a store with the given entry TTL.
func NewRedisIdempotencyStore(rdb *redis.Client, ttl time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{rdb: rdb, ttl: ttl}
}

// TryLock claims the key for the calling request. Returns false when a
// concurrent or earlier request already holds it.
func (s *RedisIdempotencyStore) TryLock(ctx context.Context, scope, key string) (bool, error) {
	return s.rdb.SetNX(ctx, "idemp:"+scope+":"+key, "1", s.ttl).Result()
}

// Remember records the order id produced under the key.
func (s *RedisIdempotencyStore) Remember(ctx context.Context, scope, key string, orderID int64) error {
	return s.rdb.Set(ctx, "idemp:map:"+scope+":"+key, orderID, s.ttl).Err()
}

// Recall returns the order id previously recorded under the key, if any.
func (s *RedisIdempotencyStore) Recall(ctx context.Context, scope, key string) (int64, bool, error) {
	id, err := s.rdb.Get(ctx, "idemp:map:"+scope+":"+key).Int64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("recall idempotency key: %w", err)
	}
	return id, true, nil
}

var _ IdempotencyStore = (*RedisIdempotencyStore)(nil)
