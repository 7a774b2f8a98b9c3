package server

import (
	"context"

	"go.uber.org/zap"

	"github.com/matst80/slask-catalog/pkg/common/jsoncompat"
	"github.com/matst80/slask-catalog/pkg/logger"
)

// CacheHelper caches the JSON form of values produced by a loader.
type CacheHelper[T any] struct {
	Cache *Cache
	// Cacheable reports whether a loaded value may be stored. Nil stores all.
	Cacheable func(T) bool
	log       *zap.Logger
}

func NewCacheHelper[T any](cache *Cache, log *zap.Logger) *CacheHelper[T] {
	return &CacheHelper[T]{Cache: cache, log: logger.OrNop(log)}
}

// Handle returns the encoded value for key, calling fn on a miss. Errors
// from the cache backend fall through to fn; only fn errors are returned.
// The bool reports a cache hit.
func (c *CacheHelper[T]) Handle(ctx context.Context, key string, fn func(ctx context.Context) (T, error)) ([]byte, bool, error) {
	if c.Cache != nil {
		data, ok, err := c.Cache.Get(ctx, key)
		if err != nil {
			c.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		} else if ok {
			cacheHits.Inc()
			return data, true, nil
		}
		cacheMisses.Inc()
	}
	value, err := fn(ctx)
	if err != nil {
		return nil, false, err
	}
	data, err := jsoncompat.Marshal(value)
	if err != nil {
		return nil, false, err
	}
	if c.Cache != nil && (c.Cacheable == nil || c.Cacheable(value)) {
		if err := c.Cache.Set(ctx, key, data); err != nil {
			c.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return data, false, nil
}
