package catalog

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/matst80/slask-catalog/pkg/category"
	"github.com/matst80/slask-catalog/pkg/facet"
	"github.com/matst80/slask-catalog/pkg/filter"
	"github.com/matst80/slask-catalog/pkg/sorting"
	"github.com/matst80/slask-catalog/pkg/store"
	"github.com/matst80/slask-catalog/pkg/types"
)

type Options struct {
	Facets facet.Options
	Limits filter.PageLimits
	Logger *zap.Logger
}

// Engine answers filtered listings: one consistent catalog snapshot per
// request, the base match and every facet pass computed against it.
type Engine struct {
	store   store.CatalogStore
	trees   *category.TreeCache
	counter *facet.Counter
	limits  filter.PageLimits
	log     *zap.Logger
}

// NewTreeLoader loads the category tree read API of a store.
func NewTreeLoader(s store.CatalogStore) category.Loader {
	return func(ctx context.Context) (*category.Tree, error) {
		cats, err := s.LoadCategories(ctx)
		if err != nil {
			return nil, err
		}
		return category.NewTree(cats), nil
	}
}

// NewEngine wires an engine. A nil tree cache gets one with the default
// TTL over the store's category read.
func NewEngine(s store.CatalogStore, trees *category.TreeCache, opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if trees == nil {
		trees = category.NewTreeCache(category.DefaultTTL, NewTreeLoader(s))
	}
	if opts.Facets.Logger == nil {
		opts.Facets.Logger = log
	}
	return &Engine{
		store:   s,
		trees:   trees,
		counter: facet.NewCounter(opts.Facets),
		limits:  opts.Limits,
		log:     log,
	}
}

func (e *Engine) Limits() filter.PageLimits {
	return e.limits
}

func (e *Engine) TreeCache() *category.TreeCache {
	return e.trees
}

// snapshotTree builds the tree matching uses from the categories read in the
// same snapshot as the products. The tree cache only serves category reads.
func (e *Engine) snapshotTree(snapshot *types.Catalog) *category.Tree {
	tree := category.NewTree(snapshot.Categories)
	e.reportCycle(tree.Err())
	return tree
}

func (e *Engine) reportCycle(err error) {
	var cfgErr *types.ConfigurationError
	if errors.As(err, &cfgErr) {
		categoryCycles.Inc()
		e.log.Error("category cycle detected", zap.String("category_id", cfgErr.CategoryId), zap.Strings("visited", cfgErr.Path))
	}
}

// scopeSpecifications resolves the specification definitions exposed by the
// selected categories. Unknown slugs and broken categories contribute
// nothing.
func (e *Engine) scopeSpecifications(tree *category.Tree, q filter.Query) []types.SpecificationDefinition {
	specs := category.NewSpecificationCatalog(tree)
	var ids []string
	for _, set := range []filter.StringSet{q.Categories(), q.SubCategories()} {
		for _, slug := range set {
			n, ok := tree.BySlug(slug)
			if !ok {
				continue
			}
			if _, err := specs.EffectiveSpecifications(n.Id); err != nil {
				if !types.IsNotFound(err) {
					e.log.Warn("skipping specifications of category", zap.String("category_id", n.Id), zap.Error(err))
				}
				continue
			}
			ids = append(ids, n.Id)
		}
	}
	defs, err := specs.EffectiveForAll(ids...)
	if err != nil {
		return nil
	}
	return defs
}

func (e *Engine) Search(ctx context.Context, req filter.SearchRequest) (*Response, error) {
	start := time.Now()
	searchesTotal.Inc()
	defer func() { searchDuration.Observe(time.Since(start).Seconds()) }()

	snapshot, err := e.store.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	tree := e.snapshotTree(snapshot)

	q := req.Query
	var defs []types.SpecificationDefinition
	if q.HasCategoryFilter() {
		defs = e.scopeSpecifications(tree, q)
		keys := make([]string, len(defs))
		for i, d := range defs {
			keys[i] = d.Key
		}
		q = q.RestrictSpecifications(keys...)
	}

	idx := facet.NewIndex(snapshot, tree)
	m, err := idx.Match(ctx, q)
	if err != nil {
		return nil, err
	}
	if m.Err != nil && tree.Err() == nil {
		e.reportCycle(m.Err)
	}

	var matched *types.ItemList
	var facets *facet.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		matched, err = m.Matched(gctx)
		return err
	})
	g.Go(func() (err error) {
		facets, err = e.counter.Count(gctx, m, defs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, d := range facets.Degraded {
		degradedDimensions.WithLabelValues(string(d)).Inc()
	}

	page := sorting.Paginate(idx.Products(matched), req.Sort, req.Order, req.Offset(), req.PageSize)
	res := &Response{
		Products:                make([]types.ProductSummary, 0, len(page.Items)),
		TotalCount:              page.TotalCount,
		TotalPages:              page.TotalPages(),
		CurrentPage:             max(req.Page, 1),
		HasNextPage:             page.HasNext,
		HasPreviousPage:         page.HasPrevious,
		PriceRange:              facets.Price,
		AvailableBrands:         facets.Brands,
		AvailableCategories:     facets.Categories,
		AvailableCollections:    facets.Collections,
		AvailableSpecifications: facets.Specifications,
		AvailableStockStatuses:  facets.StockStatuses,
		Query:                   q,
		Degraded:                facets.Degraded,
	}
	for _, p := range page.Items {
		brand, _ := idx.Brand(p.BrandId)
		res.Products = append(res.Products, summarize(p, brand))
	}
	e.log.Debug("search completed",
		zap.String("query", filter.Encode(q)),
		zap.Int("total", res.TotalCount),
		zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

// Categories returns the category tree. A broken graph is reported and
// yields an empty tree.
func (e *Engine) Categories(ctx context.Context) ([]*CategoryNode, error) {
	tree, err := e.trees.Get(ctx)
	if err != nil {
		return nil, err
	}
	ret := []*CategoryNode{}
	if tree.Err() != nil {
		e.reportCycle(tree.Err())
		return ret, nil
	}
	var build func(n *category.Node) *CategoryNode
	build = func(n *category.Node) *CategoryNode {
		node := &CategoryNode{Id: n.Id, Slug: n.Slug, Name: n.Name, ParentId: n.ParentId, Specifications: n.Category.Specifications}
		for _, c := range n.Children {
			node.Children = append(node.Children, build(c))
		}
		return node
	}
	for _, root := range tree.Roots() {
		ret = append(ret, build(root))
	}
	return ret, nil
}

// Specifications returns the effective specifications of a category by
// slug. An unknown slug is a NotFoundError; a cycle yields an empty list.
func (e *Engine) Specifications(ctx context.Context, slug string) ([]types.SpecificationDefinition, error) {
	tree, err := e.trees.Get(ctx)
	if err != nil {
		return nil, err
	}
	n, ok := tree.BySlug(slug)
	if !ok {
		return nil, &types.NotFoundError{Kind: "category", Id: slug}
	}
	defs, err := category.NewSpecificationCatalog(tree).EffectiveSpecifications(n.Id)
	if err != nil {
		if types.IsConfiguration(err) {
			e.reportCycle(err)
			return []types.SpecificationDefinition{}, nil
		}
		return nil, err
	}
	return defs, nil
}
