package category

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const DefaultTTL = 30 * time.Second

type Loader func(ctx context.Context) (*Tree, error)

type treeEntry struct {
	tree      *Tree
	fetchedAt time.Time
}

// TreeCache keeps the last loaded tree for a short TTL. It is advisory: a
// stale tree only skews facet counts until the next reload, so writers never
// need to coordinate with it. Invalidate is a fast path for change events.
type TreeCache struct {
	ttl    time.Duration
	load   Loader
	now    func() time.Time
	mu     sync.RWMutex
	entry  *treeEntry
	flight singleflight.Group
}

func NewTreeCache(ttl time.Duration, load Loader) *TreeCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TreeCache{ttl: ttl, load: load, now: time.Now}
}

func (c *TreeCache) cached() (*Tree, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.entry != nil && c.now().Sub(c.entry.fetchedAt) < c.ttl {
		return c.entry.tree, true
	}
	return nil, false
}

func (c *TreeCache) Get(ctx context.Context) (*Tree, error) {
	if tree, ok := c.cached(); ok {
		return tree, nil
	}
	v, err, _ := c.flight.Do("tree", func() (any, error) {
		if tree, ok := c.cached(); ok {
			return tree, nil
		}
		tree, err := c.load(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entry = &treeEntry{tree: tree, fetchedAt: c.now()}
		c.mu.Unlock()
		return tree, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Tree), nil
}

func (c *TreeCache) Invalidate() {
	c.mu.Lock()
	c.entry = nil
	c.mu.Unlock()
}
