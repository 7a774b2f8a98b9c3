package facet

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/matst80/slask-catalog/pkg/category"
	"github.com/matst80/slask-catalog/pkg/filter"
	"github.com/matst80/slask-catalog/pkg/types"
)

const (
	DefaultWorkers = 4
	DefaultTimeout = 2 * time.Second
)

type Options struct {
	// Workers bounds the number of facet passes running at once.
	Workers int
	// Timeout is the budget of a single dimension.
	Timeout time.Duration
	Logger  *zap.Logger
}

// Counter computes N-1 facet counts: each dimension is counted against the
// intersection of every other dimension's match set.
type Counter struct {
	workers int
	timeout time.Duration
	log     *zap.Logger

	beforePass func(ctx context.Context, d filter.Dimension)
}

func NewCounter(opts Options) *Counter {
	c := &Counter{
		workers: opts.Workers,
		timeout: opts.Timeout,
		log:     opts.Logger,
	}
	if c.workers < 1 {
		c.workers = DefaultWorkers
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c
}

type pass struct {
	dim         filter.Dimension
	run         func(ctx context.Context) error
	unavailable func()
}

// Count runs one pass per dimension concurrently. A pass that exceeds its
// budget marks only that dimension unavailable; cancelling ctx aborts all
// of them.
func (c *Counter) Count(ctx context.Context, m *Matcher, specs []types.SpecificationDefinition) (*Result, error) {
	res := &Result{Specifications: make([]SpecificationFacet, len(specs))}
	passes := []pass{
		{filter.Price, func(ctx context.Context) (err error) {
			res.Price, err = c.priceRange(ctx, m)
			return err
		}, func() { res.Price = PriceRange{Unavailable: true} }},
		{filter.Brands, func(ctx context.Context) (err error) {
			res.Brands, err = c.brands(ctx, m)
			return err
		}, func() { res.Brands = NamedFacet{Unavailable: true} }},
		{filter.Collections, func(ctx context.Context) (err error) {
			res.Collections, err = c.collections(ctx, m)
			return err
		}, func() { res.Collections = NamedFacet{Unavailable: true} }},
		{filter.StockStatus, func(ctx context.Context) (err error) {
			res.StockStatuses, err = c.stockStatuses(ctx, m)
			return err
		}, func() { res.StockStatuses = ValueFacet{Unavailable: true} }},
		{filter.Categories, func(ctx context.Context) (err error) {
			res.Categories, err = c.categories(ctx, m)
			return err
		}, func() { res.Categories = CategoryFacet{Nodes: []*CategoryCount{}, Unavailable: true} }},
	}
	for i, def := range specs {
		passes = append(passes, pass{filter.SpecDimension(def.Key), func(ctx context.Context) (err error) {
			res.Specifications[i], err = c.specification(ctx, m, def)
			return err
		}, func() { res.Specifications[i] = SpecificationFacet{Key: def.Key, Name: def.Name, Unavailable: true} }})
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for _, p := range passes {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(gctx, c.timeout)
			defer cancel()
			if c.beforePass != nil {
				c.beforePass(pctx, p.dim)
			}
			err := pctx.Err()
			if err == nil {
				err = p.run(pctx)
			}
			if err == nil {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				p.unavailable()
				mu.Lock()
				res.Degraded = append(res.Degraded, p.dim)
				mu.Unlock()
				c.log.Warn("facet dimension degraded", zap.String("dimension", string(p.dim)), zap.Error(err))
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	slices.Sort(res.Degraded)
	return res, nil
}

func (c *Counter) priceRange(ctx context.Context, m *Matcher) (PriceRange, error) {
	rest := m.Rest(filter.Price)
	var ret PriceRange
	first := true
	i := 0
	for pos := range rest.All() {
		if i++; i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return ret, err
			}
		}
		price := m.idx.products[pos].Price
		if first {
			ret.Min, ret.Max = price, price
			first = false
			continue
		}
		ret.Min = min(ret.Min, price)
		ret.Max = max(ret.Max, price)
	}
	return ret, ctx.Err()
}

type namedValue struct {
	id, slug, name string
}

func (c *Counter) named(ctx context.Context, m *Matcher, d filter.Dimension, values []namedValue, p postings, selected filter.StringSet) (NamedFacet, error) {
	rest := m.Rest(d)
	scope := m.Scope(d)
	ret := NamedFacet{Values: []NamedCount{}}
	for _, v := range values {
		if err := ctx.Err(); err != nil {
			return NamedFacet{}, err
		}
		ids, ok := p[v.id]
		isSelected := selected.Contains(v.id)
		if !isSelected && (!ok || !ids.HasIntersection(scope)) {
			continue
		}
		count := 0
		if ok {
			count = rest.IntersectionLen(ids)
		}
		ret.Values = append(ret.Values, NamedCount{Id: v.id, Slug: v.slug, Name: v.name, Count: count, Selected: isSelected})
	}
	return ret, nil
}

func (c *Counter) brands(ctx context.Context, m *Matcher) (NamedFacet, error) {
	values := make([]namedValue, len(m.idx.brandList))
	for i, b := range m.idx.brandList {
		values[i] = namedValue{b.Id, b.Slug, b.Name}
	}
	return c.named(ctx, m, filter.Brands, values, m.idx.brands, m.query.Brands())
}

func (c *Counter) collections(ctx context.Context, m *Matcher) (NamedFacet, error) {
	values := make([]namedValue, len(m.idx.collList))
	for i, col := range m.idx.collList {
		values[i] = namedValue{col.Id, col.Slug, col.Name}
	}
	return c.named(ctx, m, filter.Collections, values, m.idx.collections, m.query.Collections())
}

// stockStatuses always lists every status in enum order.
func (c *Counter) stockStatuses(ctx context.Context, m *Matcher) (ValueFacet, error) {
	rest := m.Rest(filter.StockStatus)
	ret := ValueFacet{Values: make([]ValueCount, 0, len(types.StockStatuses))}
	for _, st := range types.StockStatuses {
		if err := ctx.Err(); err != nil {
			return ValueFacet{}, err
		}
		count := 0
		if ids, ok := m.idx.stock[string(st)]; ok {
			count = rest.IntersectionLen(ids)
		}
		ret.Values = append(ret.Values, ValueCount{Value: string(st), Count: count})
	}
	return ret, nil
}

// categories counts every node of the tree with only the categories
// dimension relaxed. A product belongs to exactly one category so a node's
// count is its own matches plus its children's counts.
func (c *Counter) categories(ctx context.Context, m *Matcher) (CategoryFacet, error) {
	tree := m.idx.tree
	ret := CategoryFacet{Nodes: []*CategoryCount{}}
	if tree.Err() != nil {
		return ret, nil
	}
	rest := m.Rest(filter.Categories)
	var walk func(n *category.Node) (*CategoryCount, error)
	walk = func(n *category.Node) (*CategoryCount, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		node := &CategoryCount{Id: n.Id, Slug: n.Slug, Name: n.Name}
		if ids, ok := m.idx.categories[n.Id]; ok {
			node.Count = rest.IntersectionLen(ids)
		}
		for _, child := range n.Children {
			cc, err := walk(child)
			if err != nil {
				return nil, err
			}
			node.Count += cc.Count
			node.Children = append(node.Children, cc)
		}
		return node, nil
	}
	for _, root := range tree.Roots() {
		node, err := walk(root)
		if err != nil {
			return CategoryFacet{}, err
		}
		ret.Nodes = append(ret.Nodes, node)
	}
	return ret, nil
}

// specification lists the values recorded for the key inside the search
// and category scope, plus any selected value, ordered by value.
func (c *Counter) specification(ctx context.Context, m *Matcher, def types.SpecificationDefinition) (SpecificationFacet, error) {
	d := filter.SpecDimension(def.Key)
	rest := m.Rest(d)
	scope := m.Scope(d)
	selected := m.query.Specification(def.Key)
	p := m.idx.specs[def.Key]

	candidates := make(map[string]struct{}, len(p)+len(selected))
	for value, ids := range p {
		if ids.HasIntersection(scope) {
			candidates[value] = struct{}{}
		}
	}
	for _, value := range selected {
		candidates[value] = struct{}{}
	}

	ret := SpecificationFacet{Key: def.Key, Name: def.Name, Values: make([]ValueCount, 0, len(candidates))}
	for _, value := range slices.Sorted(maps.Keys(candidates)) {
		if err := ctx.Err(); err != nil {
			return SpecificationFacet{}, err
		}
		count := 0
		if ids, ok := p[value]; ok {
			count = rest.IntersectionLen(ids)
		}
		ret.Values = append(ret.Values, ValueCount{Value: value, Count: count})
	}
	return ret, nil
}
