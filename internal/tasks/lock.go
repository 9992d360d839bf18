package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const lockKeyPrefix = "ingest:lock:"

// SourceLock serializes ingestion per source document. Two workers ingesting
// the same file name concurrently would interleave delete and insert phases,
// so the second one must wait for the next attempt instead.
type SourceLock struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSourceLock builds a lock manager with the given lease duration. The TTL
// bounds how long a crashed worker can block re-ingestion of its source.
func NewSourceLock(rdb *redis.Client, ttl time.Duration) *SourceLock {
	return &SourceLock{rdb: rdb, ttl: ttl}
}

// Acquire tries to take the lock for sourceID. It returns false when another
// holder already has it.
func (l *SourceLock) Acquire(ctx context.Context, sourceID string) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, lockKeyPrefix+sourceID, time.Now().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire ingestion lock for %s: %w", sourceID, err)
	}
	return ok, nil
}

// Release drops the lock for sourceID.
func (l *SourceLock) Release(ctx context.Context, sourceID string) error {
	if err := l.rdb.Del(ctx, lockKeyPrefix+sourceID).Err(); err != nil {
		return fmt.Errorf("failed to release ingestion lock for %s: %w", sourceID, err)
	}
	return nil
}
