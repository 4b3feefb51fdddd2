package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// redisPrefix namespaces every key this store writes so a shared Redis can
// also serve unrelated consumers.
const redisPrefix = "pipecache"

// clearScanCount is the SCAN page size used by Clear.
const clearScanCount = 256

// RedisStore is a Redis-backed store for caches shared between processes or
// machines. Unlike a best-effort read-through cache, store failures are
// surfaced to the caller: a cached build result silently lost to a
// connection error would otherwise be indistinguishable from a miss caused
// by changed inputs.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(addr, password string, db int) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisStore{rdb: rdb}
}

// NewRedisStoreFromClient wraps an existing client. The caller keeps
// ownership of the client's lifecycle.
func NewRedisStoreFromClient(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// GetCached retrieves the value stored under (name, key).
func (s *RedisStore) GetCached(ctx context.Context, name, key string) ([]byte, bool, error) {
	k, err := s.key(name, key)
	if err != nil {
		return nil, false, err
	}
	val, err := s.rdb.Get(ctx, k).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("store: redis get: %w", err)
	}
	return val, true, nil
}

// AddCached stores value under (name, key) with no expiration; eviction is
// the Redis deployment's policy, not this store's.
func (s *RedisStore) AddCached(ctx context.Context, name, key string, value []byte) error {
	k, err := s.key(name, key)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, k, value, 0).Err(); err != nil {
		return fmt.Errorf("store: redis set: %w", err)
	}
	return nil
}

// RemoveCached removes (name, key). Removing an absent entry is not an error.
func (s *RedisStore) RemoveCached(ctx context.Context, name, key string) error {
	k, err := s.key(name, key)
	if err != nil {
		return err
	}
	if err := s.rdb.Del(ctx, k).Err(); err != nil {
		return fmt.Errorf("store: redis del: %w", err)
	}
	return nil
}

// Clear removes every entry in the named namespace, or every entry this
// store owns when name is empty. Uses SCAN so large namespaces do not block
// the server the way KEYS would.
func (s *RedisStore) Clear(ctx context.Context, name string) error {
	pattern := redisPrefix + ":*"
	if name != "" {
		if err := ValidateName(name); err != nil {
			return err
		}
		pattern = redisPrefix + ":" + name + ":*"
	}

	iter := s.rdb.Scan(ctx, 0, pattern, clearScanCount).Iterator()
	batch := make([]string, 0, clearScanCount)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.rdb.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("store: redis del: %w", err)
		}
		batch = batch[:0]
		return nil
	}
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == clearScanCount {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("store: redis scan: %w", err)
	}
	return flush()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStore) key(name, key string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return redisPrefix + ":" + name + ":" + key, nil
}

// Ensure RedisStore implements Store
var _ Store = (*RedisStore)(nil)
