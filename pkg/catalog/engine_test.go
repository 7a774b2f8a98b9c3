package catalog

import (
	"context"
	"math/rand"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/matst80/slask-catalog/pkg/category"
	"github.com/matst80/slask-catalog/pkg/filter"
	"github.com/matst80/slask-catalog/pkg/sorting"
	"github.com/matst80/slask-catalog/pkg/store"
	"github.com/matst80/slask-catalog/pkg/types"
)

func strPtr(s string) *string { return &s }

func phones() *types.Catalog {
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	phone := func(id, brand, storage string, price float64, stock types.StockStatus) types.Product {
		return types.Product{
			Id:          id,
			Name:        "Phone " + id,
			Price:       price,
			BrandId:     brand,
			CategoryId:  "phones",
			StockStatus: stock,
			CreatedAt:   base,
			Specs:       map[string]string{"storage": storage},
		}
	}
	return &types.Catalog{
		Brands:      []types.Brand{{Id: "apple", Name: "Apple"}, {Id: "samsung", Name: "Samsung"}},
		Collections: []types.Collection{{Id: "sale", Name: "Sale"}},
		Categories: []types.Category{
			{Id: "electronics", Slug: "electronics", Name: "Electronics"},
			{Id: "phones", Slug: "phones", Name: "Phones", ParentId: strPtr("electronics"), Specifications: []types.SpecificationDefinition{
				{Id: "d1", Key: "storage", Name: "Storage"},
			}},
			{Id: "laptops", Slug: "laptops", Name: "Laptops", ParentId: strPtr("electronics"), Specifications: []types.SpecificationDefinition{
				{Id: "d2", Key: "screen", Name: "Screen size"},
			}},
		},
		Products: []types.Product{
			phone("p1", "apple", "64GB", 499, types.InStock),
			phone("p2", "samsung", "64GB", 399, types.LowStock),
			phone("p3", "apple", "128GB", 599, types.InStock),
			phone("p4", "samsung", "128GB", 599, types.InStock),
			phone("p5", "apple", "128GB", 599, types.OutOfStock),
			{Id: "l1", Name: "Laptop", Price: 1299, BrandId: "apple", CategoryId: "laptops", StockStatus: types.InStock, CreatedAt: base, Specs: map[string]string{"screen": "14"}},
		},
	}
}

func newEngine(t *testing.T, s store.CatalogStore) *Engine {
	t.Helper()
	return NewEngine(s, nil, Options{
		Limits: filter.PageLimits{DefaultSize: 24, MaxSize: 100},
		Logger: zaptest.NewLogger(t),
	})
}

func search(t *testing.T, e *Engine, raw string) *Response {
	t.Helper()
	values, err := url.ParseQuery(raw)
	require.NoError(t, err)
	res, err := e.Search(context.Background(), filter.ParseSearchRequest(values, e.Limits()))
	require.NoError(t, err)
	return res
}

func productIds(res *Response) []string {
	ids := make([]string, len(res.Products))
	for i, p := range res.Products {
		ids[i] = p.Id
	}
	return ids
}

func TestPhoneScenarioEndToEnd(t *testing.T) {
	e := newEngine(t, store.NewMemoryStore(phones()))
	res := search(t, e, "categories=phones&spec.storage=128GB&sort=name&order=asc")

	assert.Equal(t, []string{"p3", "p4", "p5"}, productIds(res))
	assert.Equal(t, len(res.Products), res.TotalCount)
	assert.Equal(t, 1, res.TotalPages)
	assert.Equal(t, 1, res.CurrentPage)
	assert.False(t, res.HasNextPage)
	assert.False(t, res.HasPreviousPage)

	storage, ok := res.Specification("storage")
	require.True(t, ok)
	assert.Equal(t, "Storage", storage.Name)
	assert.Equal(t, 2, storage.Count("64GB"))
	assert.Equal(t, 3, storage.Count("128GB"))
	_, hasScreen := res.Specification("screen")
	assert.False(t, hasScreen, "laptop specifications are out of scope")

	assert.Equal(t, 2, res.AvailableBrands.Count("apple"))
	assert.Equal(t, 1, res.AvailableBrands.Count("samsung"))
	assert.Equal(t, 2, res.AvailableStockStatuses.Count(string(types.InStock)))
	assert.Equal(t, 0, res.AvailableStockStatuses.Count(string(types.Backorder)))
	require.NotNil(t, res.Products[0].Brand)
	assert.Equal(t, "Apple", res.Products[0].Brand.Name)

	require.Len(t, res.AvailableCategories.Nodes, 1)
	root := res.AvailableCategories.Nodes[0]
	assert.Equal(t, 3, root.Count)
	assert.Equal(t, "laptops", root.Children[0].Id)
	assert.Equal(t, 0, root.Children[0].Count)
}

func TestUnknownSpecificationKeysAreIgnored(t *testing.T) {
	e := newEngine(t, store.NewMemoryStore(phones()))
	res := search(t, e, "categories=phones&spec.screen=14")
	assert.Len(t, res.Products, 5)
	assert.Empty(t, res.Query.SpecificationKeys())
}

func TestWithoutCategoryNoSpecificationFacets(t *testing.T) {
	e := newEngine(t, store.NewMemoryStore(phones()))
	res := search(t, e, "spec.screen=14")
	assert.Equal(t, []string{"l1"}, productIds(res))
	assert.Empty(t, res.AvailableSpecifications)
	assert.Equal(t, 1299.0, res.PriceRange.Min)
	assert.Equal(t, 1299.0, res.PriceRange.Max)
}

func TestPagination(t *testing.T) {
	e := newEngine(t, store.NewMemoryStore(phones()))
	res := search(t, e, "sort=price&order=desc&size=2&page=2")
	assert.Equal(t, []string{"p4", "p5"}, productIds(res))
	assert.Equal(t, 6, res.TotalCount)
	assert.Equal(t, 3, res.TotalPages)
	assert.Equal(t, 2, res.CurrentPage)
	assert.True(t, res.HasNextPage)
	assert.True(t, res.HasPreviousPage)
}

type shufflingStore struct {
	mu      sync.Mutex
	catalog *types.Catalog
	rnd     *rand.Rand
}

func (s *shufflingStore) LoadCatalog(ctx context.Context) (*types.Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *s.catalog
	c.Products = append([]types.Product(nil), s.catalog.Products...)
	s.rnd.Shuffle(len(c.Products), func(i, j int) { c.Products[i], c.Products[j] = c.Products[j], c.Products[i] })
	return &c, nil
}

func (s *shufflingStore) LoadCategories(ctx context.Context) ([]types.Category, error) {
	return s.catalog.Categories, nil
}

func TestPaginationStableAcrossReadOrder(t *testing.T) {
	e := newEngine(t, &shufflingStore{catalog: phones(), rnd: rand.New(rand.NewSource(7))})
	first := productIds(search(t, e, "sort=price&order=asc&size=3"))
	for range 10 {
		assert.Equal(t, first, productIds(search(t, e, "sort=price&order=asc&size=3")))
	}
	assert.Equal(t, []string{"p2", "p1", "p3"}, first)
}

func TestCycleIsNotSurfaced(t *testing.T) {
	c := phones()
	c.Categories = append(c.Categories,
		types.Category{Id: "a", Slug: "a", Name: "A", ParentId: strPtr("b"), Specifications: []types.SpecificationDefinition{{Id: "d9", Key: "k", Name: "K"}}},
		types.Category{Id: "b", Slug: "b", Name: "B", ParentId: strPtr("a")},
	)
	e := newEngine(t, store.NewMemoryStore(c))

	cats, err := e.Categories(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cats)

	specs, err := e.Specifications(context.Background(), "a")
	require.NoError(t, err)
	assert.Empty(t, specs)

	res := search(t, e, "categories=a")
	assert.Empty(t, res.Products)
	assert.Empty(t, res.AvailableCategories.Nodes)
	assert.Empty(t, res.AvailableSpecifications)

	res = search(t, e, "categories=phones")
	assert.Len(t, res.Products, 5)
}

func TestCategoriesAndSpecifications(t *testing.T) {
	e := newEngine(t, store.NewMemoryStore(phones()))
	cats, err := e.Categories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Len(t, cats[0].Children, 2)

	specs, err := e.Specifications(context.Background(), "phones")
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "storage", specs[0].Key)

	_, err = e.Specifications(context.Background(), "missing")
	assert.True(t, types.IsNotFound(err))
}

type timeoutStore struct{}

func (timeoutStore) LoadCatalog(ctx context.Context) (*types.Catalog, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (timeoutStore) LoadCategories(ctx context.Context) ([]types.Category, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestStoreTimeoutFailsSearch(t *testing.T) {
	s := store.WithTimeout(timeoutStore{}, 10*time.Millisecond, nil)
	e := NewEngine(s, category.NewTreeCache(time.Minute, NewTreeLoader(s)), Options{Logger: zaptest.NewLogger(t)})
	_, err := e.Search(context.Background(), filter.NewSearchRequest(filter.Query{}, e.Limits()))
	assert.True(t, types.IsStoreTimeout(err), "got %v", err)
}

func TestSortDefaultsToNewest(t *testing.T) {
	c := phones()
	c.Products[1].CreatedAt = c.Products[1].CreatedAt.Add(time.Hour)
	e := newEngine(t, store.NewMemoryStore(c))
	res, err := e.Search(context.Background(), filter.NewSearchRequest(filter.Query{}, e.Limits()))
	require.NoError(t, err)
	assert.Equal(t, sorting.CreatedAt, sorting.DefaultKey)
	assert.Equal(t, "p2", res.Products[0].Id)
	assert.Equal(t, []string{"l1", "p1", "p3", "p4", "p5"}, productIds(res)[1:])
}

func TestNewCategoryMatchesWithinTreeCacheTTL(t *testing.T) {
	mem := store.NewMemoryStore(phones())
	e := NewEngine(mem, category.NewTreeCache(time.Hour, NewTreeLoader(mem)), Options{Logger: zaptest.NewLogger(t)})

	before := search(t, e, "categories=phones")
	assert.Equal(t, 5, before.TotalCount)
	_, err := e.Categories(context.Background())
	require.NoError(t, err)

	c := phones()
	c.Categories = append(c.Categories, types.Category{Id: "foldables", Slug: "foldables", Name: "Foldables", ParentId: strPtr("phones")})
	c.Products = append(c.Products, types.Product{Id: "f1", Name: "Fold", Price: 999, BrandId: "samsung", CategoryId: "foldables", StockStatus: types.InStock})
	mem.Replace(c)

	after := search(t, e, "categories=phones")
	assert.Equal(t, 6, after.TotalCount)
	assert.Contains(t, productIds(after), "f1")

	sub := search(t, e, "categories=foldables")
	assert.Equal(t, []string{"f1"}, productIds(sub))
}

func TestPageBeyondResultsIsEmpty(t *testing.T) {
	e := newEngine(t, store.NewMemoryStore(phones()))
	res := search(t, e, "page=9223372036854775807&size=2")
	assert.Empty(t, res.Products)
	assert.Equal(t, 6, res.TotalCount)
	assert.False(t, res.HasNextPage)
}
