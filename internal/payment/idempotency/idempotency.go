// Package idempotency deduplicates gateway callbacks with a redis SETNX
// guard, so a redelivered notification is acknowledged without being
// reprocessed.
package idempotency

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyTTL = 24 * time.Hour

type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// Claim marks the key as processed and reports whether this caller won the
// claim. A nil store always reports true, disabling the guard.
func (s *Store) Claim(ctx context.Context, scope, key string) (bool, error) {
	if s == nil || s.client == nil {
		return true, nil
	}
	return s.client.SetNX(ctx, "idemp:"+scope+":"+key, 1, keyTTL).Result()
}

// Release drops a claim so the caller can retry after a failure.
func (s *Store) Release(ctx context.Context, scope, key string) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Del(ctx, "idemp:"+scope+":"+key).Err()
}
