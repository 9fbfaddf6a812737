package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tair/storefront/internal/storefront"
)

// DefaultSessionTTL bounds how long an idle guest blob survives in Redis.
const DefaultSessionTTL = 30 * 24 * time.Hour

// RedisStore keeps one guest blob per session under
// "storefront-state:<sessionID>". Each save renews the TTL.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, sessionID string, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisStore{
		client: client,
		key:    Key(sessionID),
		ttl:    ttl,
	}
}

// Key returns the Redis key for a session's blob
func Key(sessionID string) string {
	return fmt.Sprintf("%s:%s", storefront.StorageKey, sessionID)
}

func (r *RedisStore) Load(ctx context.Context) (storefront.State, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return storefront.State{}, nil
		}
		return storefront.State{}, fmt.Errorf("redis get %s: %w", r.key, err)
	}
	state, err := decode(data)
	if err != nil {
		return storefront.State{}, fmt.Errorf("decode state: %w", err)
	}
	return state, nil
}

func (r *RedisStore) Save(ctx context.Context, state storefront.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := r.client.Set(ctx, r.key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key, err)
	}
	return nil
}
