package repocontext

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "repocontext:"

// Compile-time check: *RedisStore implements Store.
var _ Store = (*RedisStore)(nil)

// RedisStore implements Store using go-redis directly, so a cached snapshot
// survives server restarts. Entries are stored as JSON blobs keyed by ref
// with a Redis TTL as a backstop; staleness is still decided by the filter
// from FetchedAt, the key expiry just keeps dead refs from accumulating.
type RedisStore struct {
	rdb    *redis.Client
	expiry time.Duration
}

// NewRedisStore creates a new RedisStore. expiry bounds how long an entry
// lives in Redis regardless of reads; zero means no expiry.
func NewRedisStore(rdb *redis.Client, expiry time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, expiry: expiry}
}

func redisKey(ref RepositoryRef) string {
	return redisKeyPrefix + ref.String()
}

// Get retrieves the cached entry for ref, returning nil if not found.
func (s *RedisStore) Get(ctx context.Context, ref RepositoryRef) (*CacheEntry, error) {
	val, err := s.rdb.Get(ctx, redisKey(ref)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil //nolint:nilnil // caller checks nil value to detect "absent"
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot %q: %w", ref, err)
	}
	var entry CacheEntry
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot %q: %w", ref, err)
	}
	return &entry, nil
}

// Put persists the entry under its ref key.
func (s *RedisStore) Put(ctx context.Context, entry *CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.rdb.Set(ctx, redisKey(entry.Ref), data, s.expiry).Err(); err != nil {
		return fmt.Errorf("save snapshot %q: %w", entry.Ref, err)
	}
	return nil
}

// Purge deletes the entry for ref. Deleting an absent key is a no-op.
func (s *RedisStore) Purge(ctx context.Context, ref RepositoryRef) error {
	if err := s.rdb.Del(ctx, redisKey(ref)).Err(); err != nil {
		return fmt.Errorf("purge snapshot %q: %w", ref, err)
	}
	return nil
}
