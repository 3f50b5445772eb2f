package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store de-duplicates externally-triggered operations (gateway callbacks,
// IPN retries) using Redis SET NX with a TTL.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func NewRedisClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
}

// Seen marks the key as processed and reports whether it had already been
// marked. The first caller for a key gets false; every later caller within
// the TTL gets true.
func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	set, err := s.client.SetNX(ctx, "idem:"+key, "1", s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency check failed: %w", err)
	}
	return !set, nil
}

// Forget clears a key so the operation can be retried, e.g. after the
// guarded work itself failed.
func (s *Store) Forget(ctx context.Context, key string) error {
	return s.client.Del(ctx, "idem:"+key).Err()
}
