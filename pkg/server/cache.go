package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matst80/slask-catalog/pkg/config"
)

const (
	keyPrefix       = "catalog:"
	maxLocalEntries = 4096
)

type localEntry struct {
	expires time.Time
	data    []byte
}

// Cache stores encoded responses in redis with a short lived in-process
// layer in front of it.
type Cache struct {
	client   *redis.Client
	ttl      time.Duration
	localTTL time.Duration
	localMax int
	now      func() time.Time
	mu       sync.RWMutex
	memCache map[string]localEntry
}

func NewCache(cfg config.CacheConfig) *Cache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewCacheFromClient(rdb, cfg.TTL)
}

func NewCacheFromClient(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{
		client:   client,
		ttl:      ttl,
		localTTL: min(ttl, 5*time.Second),
		localMax: maxLocalEntries,
		now:      time.Now,
		memCache: make(map[string]localEntry),
	}
}

// Get returns the cached bytes for key. A miss is not an error.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	local, found := c.memCache[keyPrefix+key]
	c.mu.RUnlock()
	if found {
		if c.now().Before(local.expires) {
			return local.data, true, nil
		}
		c.forget(keyPrefix+key, local.expires)
	}
	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	c.remember(key, data)
	return data, true, nil
}

func (c *Cache) Set(ctx context.Context, key string, data []byte) error {
	c.remember(key, data)
	return c.client.Set(ctx, keyPrefix+key, data, c.ttl).Err()
}

// forget drops an expired local entry unless it was refreshed meanwhile.
func (c *Cache) forget(key string, expires time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.memCache[key]; ok && e.expires.Equal(expires) {
		delete(c.memCache, key)
	}
}

// remember stores data in the local layer. When the layer is full expired
// entries are swept first, then arbitrary entries are evicted.
func (c *Cache) remember(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if _, exists := c.memCache[keyPrefix+key]; !exists && len(c.memCache) >= c.localMax {
		for k, e := range c.memCache {
			if !now.Before(e.expires) {
				delete(c.memCache, k)
			}
		}
		for k := range c.memCache {
			if len(c.memCache) < c.localMax {
				break
			}
			delete(c.memCache, k)
		}
	}
	c.memCache[keyPrefix+key] = localEntry{expires: now.Add(c.localTTL), data: data}
}

func (c *Cache) localLen() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.memCache)
}

// Invalidate drops every cached response, locally and in redis.
func (c *Cache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	clear(c.memCache)
	c.mu.Unlock()

	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}
