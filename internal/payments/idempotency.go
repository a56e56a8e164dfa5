package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sorbeteslab/sorbetes-backend/pkg/redis"
)

// IdempotencyGuard fences concurrent duplicate charge submissions so a
// double-clicked checkout cannot hit the gateway twice.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &IdempotencyGuard{
		store: store,
		ttl:   ttl,
		scope: scope,
	}, nil
}

// CheckAndMark returns true when the key was already marked, meaning another
// submission with the same identity is in flight or recently finished.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, errors.New("id is required")
	}
	key := g.store.IdempotencyKey(g.scope, id)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

// Release frees the key so a failed submission can be retried immediately.
func (g *IdempotencyGuard) Release(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("id is required")
	}
	key := g.store.IdempotencyKey(g.scope, id)
	return g.store.Del(ctx, key)
}
