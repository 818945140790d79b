// Package cache implements the optional Redis-backed query result cache.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/docsense/docsense/internal/model"
	"github.com/docsense/docsense/internal/rank"
	"github.com/docsense/docsense/pkg/logger"
	"github.com/docsense/docsense/pkg/metrics"
	"github.com/docsense/docsense/pkg/redisx"
)

const keyPrefix = "search:"

// QueryCache memoizes ranked search responses in Redis. A nil *QueryCache is
// valid and means caching is disabled; every lookup falls through to the
// compute function.
type QueryCache struct {
	client  *redisx.Client
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	log     *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func New(client *redisx.Client, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		client:  client,
		ttl:     ttl,
		metrics: m,
		log:     logger.WithComponent("query-cache"),
	}
}

// GetOrCompute returns the cached response for the query, or computes and
// stores it. Concurrent identical lookups share one computation. The index
// version is part of the key, so a response computed before a mutation can
// never be served after it.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	query string,
	method rank.Method,
	limit int,
	version uint64,
	compute func() ([]model.SearchResult, error),
) ([]model.SearchResult, bool, error) {
	if c == nil || c.client == nil {
		results, err := compute()
		return results, false, err
	}

	key := buildKey(query, method, limit, version)
	if results, ok := c.get(ctx, key); ok {
		return results, true, nil
	}

	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if results, ok := c.get(ctx, key); ok {
			return results, nil
		}
		results, err := compute()
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, results)
		return results, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]model.SearchResult), false, nil
}

func (c *QueryCache) get(ctx context.Context, key string) ([]model.SearchResult, bool) {
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !redisx.IsNilError(err) {
			c.log.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return nil, false
	}
	var results []model.SearchResult
	if err := json.Unmarshal([]byte(data), &results); err != nil {
		c.log.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	c.metrics.CacheHitsTotal.Inc()
	return results, true
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	c.metrics.CacheMissesTotal.Inc()
}

func (c *QueryCache) set(ctx context.Context, key string, results []model.SearchResult) {
	data, err := json.Marshal(results)
	if err != nil {
		c.log.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl); err != nil {
		c.log.Error("cache set failed", "key", key, "error", err)
	}
}

// Invalidate removes every cached search response.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.log.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats reports hit and miss counts since startup.
func (c *QueryCache) Stats() (hits, misses int64) {
	if c == nil {
		return 0, 0
	}
	return c.hits.Load(), c.misses.Load()
}

// Enabled reports whether a Redis client is attached.
func (c *QueryCache) Enabled() bool { return c != nil && c.client != nil }

// Ping reports cache backend reachability for health checks.
func (c *QueryCache) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Ping(ctx)
}

func buildKey(query string, method rank.Method, limit int, version uint64) string {
	raw := fmt.Sprintf("%s|%s|%d|%d", query, method, limit, version)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
