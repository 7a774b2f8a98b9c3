package filter

import (
	"math"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matst80/slask-catalog/pkg/sorting"
	"github.com/matst80/slask-catalog/pkg/types"
)

func TestRoundTrip(t *testing.T) {
	queries := []Query{
		{},
		New(Params{Search: "galaxy s24"}),
		New(Params{Categories: []string{"phones", "tablets"}, SubCategories: []string{"android"}}),
		New(Params{Brands: []string{"b,1", "b%2"}, Collections: []string{"summer sale"}}),
		New(Params{MinPrice: ptr(0), MaxPrice: ptr(1299.99)}),
		New(Params{MaxPrice: ptr(15)}),
		New(Params{StockStatus: []string{"DISCONTINUED", "IN_STOCK"}}),
		New(Params{Specifications: map[string][]string{
			"storage":     {"128GB", "64GB"},
			"screen size": {"6.1\"", "a+b", "x&y=z"},
		}}),
		New(Params{
			Search:         "50% off, today",
			Brands:         []string{"x"},
			MinPrice:       ptr(3.25),
			StockStatus:    []string{"LOW_STOCK"},
			Specifications: map[string][]string{"color": {"red"}},
		}),
	}
	for _, q := range queries {
		encoded := Encode(q)
		decoded := Decode(encoded)
		assert.True(t, q.Equal(decoded), "round trip of %q gave %q", encoded, Encode(decoded))
	}
}

func TestEncodeListIsCommaJoined(t *testing.T) {
	q := New(Params{Brands: []string{"y", "x"}, Specifications: map[string][]string{"storage": {"64GB", "128GB"}}})
	assert.Equal(t, "brands=x,y&spec.storage=128GB,64GB", Encode(q))
}

func TestDecodeDropsMalformedTokens(t *testing.T) {
	q, issues := DecodeWithIssues("?brands=x,,%25zz,y&minPrice=abc&maxPrice=20&stockStatus=IN_STOCK,NOPE&unknown=1")
	assert.Equal(t, StringSet{"x", "y"}, q.Brands())
	_, hasMin := q.MinPrice()
	assert.False(t, hasMin)
	max, _ := q.MaxPrice()
	assert.Equal(t, 20.0, max)
	assert.Equal(t, []types.StockStatus{types.InStock}, q.StockStatuses())
	assert.Len(t, issues, 2)
}

func TestDecodeMergesRepeatedKeys(t *testing.T) {
	q := Decode("brands=a&brands=b,c&spec.color=red&spec.color=blue")
	assert.Equal(t, StringSet{"a", "b", "c"}, q.Brands())
	assert.Equal(t, StringSet{"blue", "red"}, q.Specification("color"))
}

func TestDecodeSwapsPrice(t *testing.T) {
	q := Decode("minPrice=100&maxPrice=10")
	min, _ := q.MinPrice()
	max, _ := q.MaxPrice()
	assert.Equal(t, 10.0, min)
	assert.Equal(t, 100.0, max)
}

func TestParseSearchRequest(t *testing.T) {
	values, err := url.ParseQuery("brands=x&sort=price&order=asc&page=3&size=500")
	require.NoError(t, err)
	sr := ParseSearchRequest(values, PageLimits{DefaultSize: 24, MaxSize: 100})
	assert.Equal(t, sorting.Price, sr.Sort)
	assert.Equal(t, sorting.Asc, sr.Order)
	assert.Equal(t, 3, sr.Page)
	assert.Equal(t, 100, sr.PageSize)
	assert.Equal(t, 200, sr.Offset())
	assert.Equal(t, StringSet{"x"}, sr.Query.Brands())
}

func TestParseSearchRequestDefaults(t *testing.T) {
	values, err := url.ParseQuery("sort=bogus&order=sideways&page=-2&size=abc")
	require.NoError(t, err)
	sr := ParseSearchRequest(values, PageLimits{})
	assert.Equal(t, sorting.CreatedAt, sr.Sort)
	assert.Equal(t, sorting.Desc, sr.Order)
	assert.Equal(t, 1, sr.Page)
	assert.Equal(t, DefaultPageSize, sr.PageSize)
	assert.Equal(t, 0, sr.Offset())
}

func TestParseSearchRequestCapsHugePage(t *testing.T) {
	values, err := url.ParseQuery("page=9223372036854775807&size=10")
	require.NoError(t, err)
	sr := ParseSearchRequest(values, PageLimits{DefaultSize: 24, MaxSize: 100})
	assert.Equal(t, math.MaxInt/10, sr.Page)
	assert.GreaterOrEqual(t, sr.Offset(), 0)

	raw := SearchRequest{Page: math.MaxInt, PageSize: 24}
	assert.GreaterOrEqual(t, raw.Offset(), 0)
}

func TestSearchRequestEncodeIsCanonical(t *testing.T) {
	a, _ := url.ParseQuery("size=10&brands=y,x&page=2")
	b, _ := url.ParseQuery("brands=x&brands=y&page=2&size=10")
	limits := PageLimits{DefaultSize: 24, MaxSize: 100}
	assert.Equal(t, ParseSearchRequest(a, limits).Encode(), ParseSearchRequest(b, limits).Encode())
}
