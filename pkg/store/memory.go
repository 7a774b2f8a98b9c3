package store

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/matst80/slask-catalog/pkg/types"
)

// MemoryStore serves a catalog held in memory. Every load returns a copy so
// callers never share state.
type MemoryStore struct {
	mu      sync.RWMutex
	catalog types.Catalog
}

func NewMemoryStore(c *types.Catalog) *MemoryStore {
	s := &MemoryStore{}
	if c != nil {
		s.Replace(c)
	}
	return s
}

func (s *MemoryStore) Replace(c *types.Catalog) {
	copied := copyCatalog(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = copied
}

func (s *MemoryStore) LoadCatalog(ctx context.Context) (*types.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := copyCatalog(&s.catalog)
	return &c, nil
}

func (s *MemoryStore) LoadCategories(ctx context.Context) ([]types.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyCatalog(&s.catalog).Categories, nil
}

func copyCatalog(c *types.Catalog) types.Catalog {
	ret := types.Catalog{
		Products:    slices.Clone(c.Products),
		Brands:      slices.Clone(c.Brands),
		Collections: slices.Clone(c.Collections),
		Categories:  slices.Clone(c.Categories),
	}
	for i := range ret.Products {
		p := &ret.Products[i]
		p.CollectionIds = slices.Clone(p.CollectionIds)
		p.Specs = maps.Clone(p.Specs)
	}
	for i := range ret.Categories {
		c := &ret.Categories[i]
		c.Specifications = slices.Clone(c.Specifications)
		if c.ParentId != nil {
			parent := *c.ParentId
			c.ParentId = &parent
		}
	}
	return ret
}
