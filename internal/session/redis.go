package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps session state in Redis as JSON values under a `sess:`
// prefix. Every save refreshes the TTL, so active sessions slide forward
// while idle ones expire on their own.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore wraps an existing Redis client. ttl bounds the lifetime of
// idle sessions.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func key(id string) string { return "sess:" + id }

// Get returns the session state for id, or ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, id string) (Data, error) {
	raw, err := s.rdb.Get(ctx, key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Data{}, ErrNotFound
		}
		return Data{}, err
	}
	var d Data
	if err := json.Unmarshal(raw, &d); err != nil {
		return Data{}, err
	}
	return d, nil
}

// Save writes the session state and resets its TTL.
func (s *RedisStore) Save(ctx context.Context, id string, d Data) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key(id), raw, s.ttl).Err()
}

// Delete destroys the session server-side. Deleting an absent session is
// not an error; the caller only needs the state gone.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, key(id)).Err()
}
