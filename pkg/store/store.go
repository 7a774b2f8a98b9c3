package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/matst80/slask-catalog/pkg/config"
	"github.com/matst80/slask-catalog/pkg/types"
)

// CatalogStore is the read side of the catalog. LoadCatalog returns one
// consistent snapshot of products joined with brands, collections,
// categories and specification values. LoadCategories is the category tree
// read on its own.
type CatalogStore interface {
	LoadCatalog(ctx context.Context) (*types.Catalog, error)
	LoadCategories(ctx context.Context) ([]types.Category, error)
}

type timeoutStore struct {
	inner   CatalogStore
	timeout time.Duration
	log     *zap.Logger
}

// WithTimeout bounds every call of inner. A call that exceeds the budget
// fails with a StoreTimeoutError; cancellation by the caller is passed
// through unchanged.
func WithTimeout(inner CatalogStore, timeout time.Duration, log *zap.Logger) CatalogStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &timeoutStore{inner: inner, timeout: timeout, log: log}
}

func (s *timeoutStore) wrap(ctx, callCtx context.Context, operation string, err error) error {
	if err == nil {
		return nil
	}
	if types.IsStoreTimeout(err) {
		return err
	}
	if ctx.Err() == nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded)) {
		s.log.Warn("store call timed out", zap.String("operation", operation), zap.Duration("timeout", s.timeout))
		return &types.StoreTimeoutError{Operation: operation, Err: context.DeadlineExceeded}
	}
	return err
}

func (s *timeoutStore) LoadCatalog(ctx context.Context) (*types.Catalog, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	c, err := s.inner.LoadCatalog(callCtx)
	if err = s.wrap(ctx, callCtx, "load catalog", err); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *timeoutStore) LoadCategories(ctx context.Context) ([]types.Category, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	c, err := s.inner.LoadCategories(callCtx)
	if err = s.wrap(ctx, callCtx, "load categories", err); err != nil {
		return nil, err
	}
	return c, nil
}

// Open builds the configured store wrapped with the configured timeout. The
// returned close function releases any connections.
func Open(cfg config.StoreConfig, log *zap.Logger) (CatalogStore, func() error, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pg, err := NewPostgresStore(cfg)
		if err != nil {
			return nil, nil, err
		}
		return WithTimeout(pg, cfg.Timeout, log), pg.Close, nil
	case config.DriverMemory, "":
		mem := NewMemoryStore(nil)
		if cfg.FixturePath != "" {
			c, err := LoadFile(cfg.FixturePath)
			if err != nil {
				return nil, nil, err
			}
			mem.Replace(c)
		}
		return WithTimeout(mem, cfg.Timeout, log), func() error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
