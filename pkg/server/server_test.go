package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/matst80/slask-catalog/pkg/catalog"
	"github.com/matst80/slask-catalog/pkg/common/jsoncompat"
	"github.com/matst80/slask-catalog/pkg/facet"
	"github.com/matst80/slask-catalog/pkg/filter"
	"github.com/matst80/slask-catalog/pkg/store"
	"github.com/matst80/slask-catalog/pkg/types"
)

func strPtr(s string) *string { return &s }

func fixture() *types.Catalog {
	created := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	return &types.Catalog{
		Brands: []types.Brand{{Id: "apple", Name: "Apple"}, {Id: "samsung", Name: "Samsung"}},
		Categories: []types.Category{
			{Id: "electronics", Slug: "electronics", Name: "Electronics"},
			{Id: "phones", Slug: "phones", Name: "Phones", ParentId: strPtr("electronics"), Specifications: []types.SpecificationDefinition{
				{Id: "d1", Key: "storage", Name: "Storage", CategoryId: "phones"},
			}},
		},
		Products: []types.Product{
			{Id: "p1", Name: "Phone 1", Price: 499, BrandId: "apple", CategoryId: "phones", StockStatus: types.InStock, CreatedAt: created, Specs: map[string]string{"storage": "64GB"}},
			{Id: "p2", Name: "Phone 2", Price: 399, BrandId: "samsung", CategoryId: "phones", StockStatus: types.InStock, CreatedAt: created, Specs: map[string]string{"storage": "128GB"}},
		},
	}
}

func newTestServer(t *testing.T, cache *Cache) (*WebServer, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore(fixture())
	e := catalog.NewEngine(s, nil, catalog.Options{Logger: zaptest.NewLogger(t)})
	return NewWebServer(e, Options{Cache: cache, Logger: zaptest.NewLogger(t)}), s
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

type productsBody struct {
	Products []struct {
		Id string `json:"id"`
	} `json:"products"`
	TotalCount  int `json:"totalCount"`
	CurrentPage int `json:"currentPage"`
}

func TestProductsEndpoint(t *testing.T) {
	ws, _ := newTestServer(t, nil)
	rec := get(t, ws.Handle(), "/api/products?categories=phones&spec.storage=128GB")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	var body productsBody
	require.NoError(t, jsoncompat.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.TotalCount)
	assert.Equal(t, 1, body.CurrentPage)
	require.Len(t, body.Products, 1)
	assert.Equal(t, "p2", body.Products[0].Id)
}

func TestRequestIdIsPropagated(t *testing.T) {
	ws, _ := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	req.Header.Set("X-Request-Id", "abc")
	rec := httptest.NewRecorder()
	ws.Handle().ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-Id"))
}

func TestCategoriesEndpoint(t *testing.T) {
	ws, _ := newTestServer(t, nil)
	rec := get(t, ws.Handle(), "/api/categories")
	require.Equal(t, http.StatusOK, rec.Code)

	var nodes []catalog.CategoryNode
	require.NoError(t, jsoncompat.Unmarshal(rec.Body.Bytes(), &nodes))
	require.Len(t, nodes, 1)
	assert.Equal(t, "electronics", nodes[0].Slug)
	require.Len(t, nodes[0].Children, 1)
	assert.Equal(t, "phones", nodes[0].Children[0].Slug)
}

func TestSpecificationsEndpoint(t *testing.T) {
	ws, _ := newTestServer(t, nil)
	rec := get(t, ws.Handle(), "/api/categories/phones/specifications")
	require.Equal(t, http.StatusOK, rec.Code)

	var defs []types.SpecificationDefinition
	require.NoError(t, jsoncompat.Unmarshal(rec.Body.Bytes(), &defs))
	require.Len(t, defs, 1)
	assert.Equal(t, "storage", defs[0].Key)

	rec = get(t, ws.Handle(), "/api/categories/unknown/specifications")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndOptions(t *testing.T) {
	ws, _ := newTestServer(t, nil)
	assert.Equal(t, http.StatusOK, get(t, ws.Handle(), "/health").Code)

	req := httptest.NewRequest(http.MethodOptions, "/api/products", nil)
	req.Header.Set("Origin", "https://shop.example")
	rec := httptest.NewRecorder()
	ws.Handle().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "https://shop.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

type failingCatalog struct {
	err error
}

func (f failingCatalog) Search(context.Context, filter.SearchRequest) (*catalog.Response, error) {
	return nil, f.err
}

func (f failingCatalog) Categories(context.Context) ([]*catalog.CategoryNode, error) {
	return nil, f.err
}

func (f failingCatalog) Specifications(context.Context, string) ([]types.SpecificationDefinition, error) {
	return nil, f.err
}

func (f failingCatalog) Limits() filter.PageLimits {
	return filter.PageLimits{}
}

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"store timeout", &types.StoreTimeoutError{Operation: "load catalog", Err: context.DeadlineExceeded}, http.StatusGatewayTimeout},
		{"not found", &types.NotFoundError{Kind: "category", Id: "x"}, http.StatusNotFound},
		{"configuration", &types.ConfigurationError{CategoryId: "a", Path: []string{"a", "b", "a"}}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ws := NewWebServer(failingCatalog{err: tc.err}, Options{Logger: zaptest.NewLogger(t)})
			rec := get(t, ws.Handle(), "/api/products")
			assert.Equal(t, tc.code, rec.Code)

			var body errorBody
			require.NoError(t, jsoncompat.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.err.Error(), body.Error)
		})
	}
}

func TestProductsAreCached(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := NewCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	t.Cleanup(func() { _ = cache.Close() })
	ws, s := newTestServer(t, cache)
	h := ws.Handle()

	first := get(t, h, "/api/products?brands=apple")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "miss", first.Header().Get("X-Cache"))

	updated := fixture()
	updated.Products = updated.Products[1:]
	s.Replace(updated)

	second := get(t, h, "/api/products?brands=apple")
	assert.Equal(t, "hit", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())

	require.NoError(t, ws.InvalidateCache(context.Background()))
	third := get(t, h, "/api/products?brands=apple")
	assert.Equal(t, "miss", third.Header().Get("X-Cache"))

	var body productsBody
	require.NoError(t, jsoncompat.Unmarshal(third.Body.Bytes(), &body))
	assert.Equal(t, 0, body.TotalCount)
}

type degradingCatalog struct {
	failingCatalog
	calls int
}

func (d *degradingCatalog) Search(context.Context, filter.SearchRequest) (*catalog.Response, error) {
	d.calls++
	res := &catalog.Response{Products: []types.ProductSummary{}}
	if d.calls == 1 {
		res.AvailableBrands = facet.NamedFacet{Unavailable: true}
		res.Degraded = []filter.Dimension{filter.Brands}
	}
	return res, nil
}

func TestDegradedResponsesAreNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := NewCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	t.Cleanup(func() { _ = cache.Close() })
	c := &degradingCatalog{}
	h := NewWebServer(c, Options{Cache: cache, Logger: zaptest.NewLogger(t)}).Handle()

	first := get(t, h, "/api/products?brands=apple")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Contains(t, first.Body.String(), `"unavailable":true`)

	second := get(t, h, "/api/products?brands=apple")
	assert.Equal(t, "miss", second.Header().Get("X-Cache"))
	assert.NotContains(t, second.Body.String(), `"unavailable":true`)

	third := get(t, h, "/api/products?brands=apple")
	assert.Equal(t, "hit", third.Header().Get("X-Cache"))
	assert.Equal(t, 2, c.calls)
}
