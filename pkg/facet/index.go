package facet

import (
	"cmp"
	"slices"
	"strings"

	"github.com/matst80/slask-catalog/pkg/category"
	"github.com/matst80/slask-catalog/pkg/types"
)

type postings map[string]*types.ItemList

func (p postings) add(key string, pos uint32) {
	if l, ok := p[key]; ok {
		l.AddId(pos)
		return
	}
	p[key] = types.NewItemList(pos)
}

// Index holds postings for every dimension over one catalog snapshot.
// Products are addressed by their position in the snapshot.
type Index struct {
	tree        *category.Tree
	products    []*types.Product
	searchText  []string
	all         *types.ItemList
	brands      postings
	collections postings
	stock       postings
	categories  postings
	specs       map[string]postings
	brandList   []types.Brand
	brandById   map[string]*types.Brand
	collList    []types.Collection
}

// NewIndex indexes the snapshot. Products are ordered by id first so the
// positions do not depend on store read order.
func NewIndex(catalog *types.Catalog, tree *category.Tree) *Index {
	products := make([]*types.Product, len(catalog.Products))
	for i := range catalog.Products {
		products[i] = &catalog.Products[i]
	}
	slices.SortFunc(products, func(a, b *types.Product) int { return cmp.Compare(a.Id, b.Id) })

	if tree == nil {
		tree = category.NewTree(catalog.Categories)
	}
	idx := &Index{
		tree:        tree,
		products:    products,
		searchText:  make([]string, len(products)),
		all:         types.NewRangeList(len(products)),
		brands:      postings{},
		collections: postings{},
		stock:       postings{},
		categories:  postings{},
		specs:       map[string]postings{},
		brandList:   slices.Clone(catalog.Brands),
		brandById:   make(map[string]*types.Brand, len(catalog.Brands)),
		collList:    slices.Clone(catalog.Collections),
	}
	slices.SortFunc(idx.brandList, func(a, b types.Brand) int { return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.Id, b.Id)) })
	slices.SortFunc(idx.collList, func(a, b types.Collection) int { return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.Id, b.Id)) })
	for i := range idx.brandList {
		idx.brandById[idx.brandList[i].Id] = &idx.brandList[i]
	}

	for i, p := range products {
		pos := uint32(i)
		idx.searchText[i] = strings.ToLower(p.Name + "\x00" + p.Sku)
		if p.BrandId != "" {
			idx.brands.add(p.BrandId, pos)
		}
		for _, c := range p.CollectionIds {
			idx.collections.add(c, pos)
		}
		if p.StockStatus != "" {
			idx.stock.add(string(p.StockStatus), pos)
		}
		if p.CategoryId != "" {
			idx.categories.add(p.CategoryId, pos)
		}
		for key, value := range p.Specs {
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			values, ok := idx.specs[key]
			if !ok {
				values = postings{}
				idx.specs[key] = values
			}
			values.add(value, pos)
		}
	}
	return idx
}

func (idx *Index) Len() int {
	return len(idx.products)
}

func (idx *Index) Tree() *category.Tree {
	return idx.tree
}

func (idx *Index) All() *types.ItemList {
	return idx.all
}

func (idx *Index) Product(pos uint32) *types.Product {
	return idx.products[pos]
}

func (idx *Index) Brand(id string) (*types.Brand, bool) {
	b, ok := idx.brandById[id]
	return b, ok
}

// Products resolves positions to products in position order.
func (idx *Index) Products(list *types.ItemList) []*types.Product {
	if list == nil {
		return slices.Clone(idx.products)
	}
	ret := make([]*types.Product, 0, list.Len())
	for pos := range list.All() {
		ret = append(ret, idx.products[pos])
	}
	return ret
}
