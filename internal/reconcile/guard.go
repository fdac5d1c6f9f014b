package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/jarafer/armatutienda-backend/pkg/logger"
	"github.com/jarafer/armatutienda-backend/pkg/redis"
)

// RedisGuard implements Guard over a SETNX key per (seller, payment id).
// The TTL outlives the gateway's redelivery window so stale keys expire
// on their own.
type RedisGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	log   *logger.Logger
}

// NewRedisGuard builds the guard.
func NewRedisGuard(store redis.IdempotencyStore, ttl time.Duration, log *logger.Logger) (*RedisGuard, error) {
	if store == nil {
		return nil, fmt.Errorf("redis store required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &RedisGuard{store: store, ttl: ttl, log: log}, nil
}

// CheckAndMark returns true when this caller claimed the notification.
func (g *RedisGuard) CheckAndMark(ctx context.Context, scope, id string) (bool, error) {
	key := g.store.IdempotencyKey("webhook:"+scope, id)
	return g.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), g.ttl)
}

// Release drops the claim so a redelivery can retry after a failure.
func (g *RedisGuard) Release(ctx context.Context, scope, id string) {
	key := g.store.IdempotencyKey("webhook:"+scope, id)
	if err := g.store.Del(ctx, key); err != nil {
		g.log.Warn(ctx, "releasing idempotency key failed")
	}
}
