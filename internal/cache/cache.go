// Package cache provides an optional Redis-backed result cache. Completed
// task results are stored under result-keyed entries with a TTL so API
// reads can serve summaries without touching the scheduler or database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by GetResult when no entry exists for the task.
var ErrCacheMiss = errors.New("cache: entry not found")

// DefaultResultTTL bounds how long task results stay readable after
// completion.
const DefaultResultTTL = 24 * time.Hour

// resultKey builds the Redis key for a task's cached result.
func resultKey(taskID string) string {
	return fmt.Sprintf("result:%s", taskID)
}

// documentKey builds the Redis key linking a document to the task that
// produced its cached summary.
func documentKey(documentID string) string {
	return fmt.Sprintf("document:%s", documentID)
}

// ResultCache stores task results in Redis. A nil *ResultCache is valid
// and behaves as a disabled cache: writes are dropped and reads miss.
type ResultCache struct {
	rdb        *redis.Client
	logger     *slog.Logger
	defaultTTL time.Duration
}

// NewResultCache creates a cache backed by the Redis server at addr.
// If logger is nil, a default logger will be used.
func NewResultCache(addr string, logger *slog.Logger) *ResultCache {
	if logger == nil {
		logger = slog.Default()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	return &ResultCache{
		rdb:        rdb,
		logger:     logger.With(slog.String("component", "result_cache")),
		defaultTTL: DefaultResultTTL,
	}
}

// WithDefaultTTL overrides the TTL applied when SetResult is called without
// one. Non-positive values keep DefaultResultTTL. Returns the cache for
// chaining; safe on a nil cache.
func (c *ResultCache) WithDefaultTTL(ttl time.Duration) *ResultCache {
	if c == nil {
		return nil
	}
	if ttl > 0 {
		c.defaultTTL = ttl
	}
	return c
}

// SetResult stores the JSON-encoded payload under the task's result key.
// A non-positive ttl falls back to the cache's default TTL. On a nil cache
// this is a no-op.
func (c *ResultCache) SetResult(ctx context.Context, taskID string, payload any, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode cached result: %w", err)
	}

	if err := c.rdb.Set(ctx, resultKey(taskID), data, ttl).Err(); err != nil {
		c.logger.Warn("failed to cache task result",
			slog.String("task_id", taskID),
			slog.String("error", err.Error()))
		return err
	}

	c.logger.Debug("cached task result",
		slog.String("task_id", taskID),
		slog.Duration("ttl", ttl))
	return nil
}

// GetResult retrieves the raw JSON payload cached for the task.
// Returns ErrCacheMiss when no entry exists, including on a nil cache.
func (c *ResultCache) GetResult(ctx context.Context, taskID string) ([]byte, error) {
	if c == nil {
		return nil, ErrCacheMiss
	}

	data, err := c.rdb.Get(ctx, resultKey(taskID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		c.logger.Warn("failed to read cached task result",
			slog.String("task_id", taskID),
			slog.String("error", err.Error()))
		return nil, err
	}

	return data, nil
}

// Delete removes the cached result for the task, if any. On a nil cache
// this is a no-op.
func (c *ResultCache) Delete(ctx context.Context, taskID string) error {
	if c == nil {
		return nil
	}
	return c.rdb.Del(ctx, resultKey(taskID)).Err()
}

// LinkDocument records which task produced the document's cached summary,
// so the entry can be evicted by document id when the document is deleted.
// The link shares the result's TTL semantics. On a nil cache this is a
// no-op.
func (c *ResultCache) LinkDocument(ctx context.Context, documentID, taskID string, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	return c.rdb.Set(ctx, documentKey(documentID), taskID, ttl).Err()
}

// EvictDocument removes the cached summary for a document, following the
// link written by LinkDocument. A document with no cached summary is a
// no-op, as is a nil cache.
func (c *ResultCache) EvictDocument(ctx context.Context, documentID string) error {
	if c == nil {
		return nil
	}

	taskID, err := c.rdb.Get(ctx, documentKey(documentID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}

	if err := c.rdb.Del(ctx, resultKey(taskID), documentKey(documentID)).Err(); err != nil {
		return err
	}

	c.logger.Debug("evicted cached summary",
		slog.String("document_id", documentID),
		slog.String("task_id", taskID))
	return nil
}

// Ping verifies connectivity to the Redis server. On a nil cache this is
// a no-op.
func (c *ResultCache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}

// Close releases the underlying Redis connection. On a nil cache this is
// a no-op.
func (c *ResultCache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
