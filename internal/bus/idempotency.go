package bus

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyStore deduplicates optimization.requested deliveries so a
// message redelivered by the bus (e.g. after a consumer crash before ack)
// is dropped rather than re-run, per spec.md §4.13's "duplicate
// (already RUNNING/COMPLETED) messages idempotently dropped".
//
// Grounded on the same github.com/redis/go-redis/v9 connection
// features/stream/pulse/clients/pulse.Client wraps for streams — SETNX
// is the standard Redis building block for this, and the teacher already
// depends on this exact client for Pulse, so no new dependency is
// introduced to cover it.
type IdempotencyStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewIdempotencyStore constructs a store keying on correlation/scenario
// IDs with the given TTL (how long a processed marker is remembered).
// ttl defaults to 1 hour when zero or negative.
func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &IdempotencyStore{redis: rdb, ttl: ttl}
}

// ClaimForProcessing returns true if this is the first observed delivery
// for key (and marks it claimed), false if a prior delivery already
// claimed it.
func (s *IdempotencyStore) ClaimForProcessing(ctx context.Context, key string) (bool, error) {
	return s.redis.SetNX(ctx, "optima:idempotency:"+key, "1", s.ttl).Result()
}
