package facet

import (
	"context"
	"strings"

	"github.com/matst80/slask-catalog/pkg/filter"
	"github.com/matst80/slask-catalog/pkg/types"
)

func (p postings) union(values filter.StringSet) *types.ItemList {
	ret := types.NewItemList()
	for _, v := range values {
		if l, ok := p[v]; ok {
			ret.Merge(l)
		}
	}
	return ret
}

func (idx *Index) matchSearch(term string) *types.ItemList {
	needle := strings.ToLower(term)
	ret := types.NewItemList()
	for i, text := range idx.searchText {
		if strings.Contains(text, needle) {
			ret.AddId(uint32(i))
		}
	}
	return ret
}

func (idx *Index) matchPrice(q filter.Query) *types.ItemList {
	lo, hasMin := q.MinPrice()
	hi, hasMax := q.MaxPrice()
	ret := types.NewItemList()
	for i, p := range idx.products {
		if hasMin && p.Price < lo {
			continue
		}
		if hasMax && p.Price > hi {
			continue
		}
		ret.AddId(uint32(i))
	}
	return ret
}

// categoryMatch returns the products in the category or any descendant.
// Unknown categories and categories in a broken part of the graph match
// nothing.
func (idx *Index) categoryMatch(id string) (*types.ItemList, error) {
	ids, err := idx.tree.DescendantIds(id)
	if err != nil {
		return types.NewItemList(), err
	}
	ret := types.NewItemList()
	for cid := range ids {
		if l, ok := idx.categories[cid]; ok {
			ret.Merge(l)
		}
	}
	return ret, nil
}

func (idx *Index) matchSlugs(slugs filter.StringSet) (*types.ItemList, error) {
	ret := types.NewItemList()
	var firstErr error
	for _, slug := range slugs {
		n, ok := idx.tree.BySlug(slug)
		if !ok {
			continue
		}
		l, err := idx.categoryMatch(n.Id)
		if err != nil {
			if firstErr == nil && types.IsConfiguration(err) {
				firstErr = err
			}
			continue
		}
		ret.Merge(l)
	}
	return ret, firstErr
}

func (idx *Index) matchStock(statuses []types.StockStatus) *types.ItemList {
	ret := types.NewItemList()
	for _, st := range statuses {
		if l, ok := idx.stock[string(st)]; ok {
			ret.Merge(l)
		}
	}
	return ret
}

func (idx *Index) matchSpecification(key string, values filter.StringSet) *types.ItemList {
	p, ok := idx.specs[key]
	if !ok {
		return types.NewItemList()
	}
	return p.union(values)
}

// Matcher keeps one match set per constrained dimension of a query.
// Dimensions left out of the map are unconstrained.
type Matcher struct {
	idx   *Index
	query filter.Query
	sets  map[filter.Dimension]*types.ItemList
	// category graph problems hit while matching, reported once
	Err error
}

// Match evaluates every constrained dimension of q independently.
func (idx *Index) Match(ctx context.Context, q filter.Query) (*Matcher, error) {
	m := &Matcher{idx: idx, query: q, sets: make(map[filter.Dimension]*types.ItemList)}
	for _, d := range q.Dimensions() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m.sets[d] = m.evaluate(d)
	}
	return m, nil
}

func (m *Matcher) evaluate(d filter.Dimension) *types.ItemList {
	q := m.query
	idx := m.idx
	switch d {
	case filter.Search:
		return idx.matchSearch(q.Search())
	case filter.Categories, filter.SubCategories:
		slugs := q.Categories()
		if d == filter.SubCategories {
			slugs = q.SubCategories()
		}
		l, err := idx.matchSlugs(slugs)
		if err != nil && m.Err == nil {
			m.Err = err
		}
		return l
	case filter.Brands:
		return idx.brands.union(q.Brands())
	case filter.Collections:
		return idx.collections.union(q.Collections())
	case filter.Price:
		return idx.matchPrice(q)
	case filter.StockStatus:
		return idx.matchStock(q.StockStatuses())
	}
	if key, ok := d.SpecKey(); ok {
		return idx.matchSpecification(key, q.Specification(key))
	}
	return nil
}

func (m *Matcher) Query() filter.Query {
	return m.query
}

// Set returns the match set of one dimension, nil when unconstrained.
func (m *Matcher) Set(d filter.Dimension) *types.ItemList {
	return m.sets[d]
}

// Rest intersects every dimension except the excluded ones. The result is
// never nil; no constraints at all yields the whole snapshot.
func (m *Matcher) Rest(exclude ...filter.Dimension) *types.ItemList {
	lists := make([]*types.ItemList, 0, len(m.sets)+1)
	lists = append(lists, m.idx.all)
	for d, l := range m.sets {
		if isExcluded(d, exclude) {
			continue
		}
		lists = append(lists, l)
	}
	return types.Intersection(lists...)
}

func isExcluded(d filter.Dimension, exclude []filter.Dimension) bool {
	for _, e := range exclude {
		if d == e {
			return true
		}
	}
	return false
}

// Scope is the product set fixed by the search term and category
// constraints that are not being relaxed. Candidate values of a facet are
// taken from it.
func (m *Matcher) Scope(relaxed filter.Dimension) *types.ItemList {
	lists := []*types.ItemList{m.idx.all}
	for _, d := range []filter.Dimension{filter.Search, filter.Categories, filter.SubCategories} {
		if d == relaxed {
			continue
		}
		if l, ok := m.sets[d]; ok {
			lists = append(lists, l)
		}
	}
	return types.Intersection(lists...)
}

// Matched merges every dimension concurrently into the final match set.
func (m *Matcher) Matched(ctx context.Context) (*types.ItemList, error) {
	qm := types.NewQueryMerger(ctx)
	qm.Add(func(ctx context.Context) *types.ItemList {
		return m.idx.all
	})
	for _, l := range m.sets {
		qm.Add(func(ctx context.Context) *types.ItemList {
			return l
		})
	}
	result, err := qm.Wait()
	if err != nil {
		return nil, err
	}
	return result, nil
}
