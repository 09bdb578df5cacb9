// Package cache serves read statements from a KV store, keyed by statement
// and invalidated per table through an epoch counter.
package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/rzpsarthak13/tabular/internal/core"
	"github.com/rzpsarthak13/tabular/internal/logging"
	"github.com/rzpsarthak13/tabular/internal/metrics"
)

// Options configures a ResultCache.
type Options struct {
	Namespace         string
	TTL               time.Duration
	CompressThreshold int
	Logger            *zap.Logger
}

// ResultCache is a read-through cache of statement results.
type ResultCache struct {
	kv        core.KVStore
	namespace string
	ttl       time.Duration
	threshold int
	logger    *zap.Logger
	group     singleflight.Group
}

// New returns a cache storing entries in kv.
func New(kv core.KVStore, o Options) *ResultCache {
	ns := o.Namespace
	if ns == "" {
		ns = "tabular"
	}
	return &ResultCache{
		kv:        kv,
		namespace: ns,
		ttl:       o.TTL,
		threshold: o.CompressThreshold,
		logger:    logging.OrNop(o.Logger),
	}
}

// Namespace returns the key prefix.
func (c *ResultCache) Namespace() string { return c.namespace }

func (c *ResultCache) epoch(ctx context.Context, table string) (int64, error) {
	raw, err := c.kv.Get(ctx, EpochKey(c.namespace, table))
	if errors.Is(err, core.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(string(raw), 10, 64)
}

// Query returns the cached result for text and args, or runs load and stores
// its result. KV failures fall back to load.
func (c *ResultCache) Query(ctx context.Context, table, text string, args []any, load func(context.Context) (core.Rows, error)) (core.Rows, error) {
	epoch, err := c.epoch(ctx, table)
	if err != nil {
		return c.degrade(ctx, table, err, load)
	}
	key, err := Key(c.namespace, table, epoch, text, args)
	if err != nil {
		return c.degrade(ctx, table, err, load)
	}

	data, err := c.kv.Get(ctx, key)
	switch {
	case err == nil:
		rs, decErr := Decode(data)
		if decErr == nil {
			metrics.CacheRequests.WithLabelValues(metrics.CacheHit).Inc()
			c.logger.Debug("cache hit", zap.String("table", table), zap.String("key", key))
			return rs.Replay(), nil
		}
		c.logger.Warn("discarding undecodable cache entry", zap.String("key", key), zap.Error(decErr))
	case !errors.Is(err, core.ErrKeyNotFound):
		return c.degrade(ctx, table, err, load)
	}

	metrics.CacheRequests.WithLabelValues(metrics.CacheMiss).Inc()
	v, err, shared := c.group.Do(key, func() (any, error) {
		rows, err := load(ctx)
		if err != nil {
			return nil, err
		}
		rs, err := Collect(rows)
		if err != nil {
			return nil, err
		}
		c.store(ctx, key, rs)
		return rs, nil
	})
	if err != nil {
		return nil, err
	}
	c.logger.Debug("cache miss", zap.String("table", table), zap.String("key", key), zap.Bool("shared", shared))
	return v.(*ResultSet).Replay(), nil
}

func (c *ResultCache) store(ctx context.Context, key string, rs *ResultSet) {
	data, err := Encode(rs, c.threshold)
	if err != nil {
		c.logger.Warn("cannot encode result for caching", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.kv.Set(ctx, key, data, c.ttl); err != nil {
		metrics.CacheRequests.WithLabelValues(metrics.CacheError).Inc()
		c.logger.Warn("cache store failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *ResultCache) degrade(ctx context.Context, table string, cause error, load func(context.Context) (core.Rows, error)) (core.Rows, error) {
	metrics.CacheRequests.WithLabelValues(metrics.CacheError).Inc()
	c.logger.Warn("cache unavailable, reading from database", zap.String("table", table), zap.Error(cause))
	return load(ctx)
}

// Invalidate bumps the table epoch so earlier entries are no longer addressed.
func (c *ResultCache) Invalidate(ctx context.Context, table string) error {
	n, err := c.kv.Incr(ctx, EpochKey(c.namespace, table))
	if err != nil {
		return err
	}
	c.logger.Debug("cache invalidated", zap.String("table", table), zap.Int64("epoch", n))
	return nil
}
