package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matst80/slask-catalog/pkg/common/jsoncompat"
	"github.com/matst80/slask-catalog/pkg/types"
)

func ptr(v float64) *float64 { return &v }

func TestBuildNormalizesEmptyToAbsent(t *testing.T) {
	q := New(Params{
		Search:         "   ",
		Brands:         []string{},
		Categories:     []string{" ", ""},
		Specifications: map[string][]string{"color": {}, "": {"x"}},
	})
	assert.True(t, q.IsEmpty())
	assert.Nil(t, q.Brands())
	assert.Nil(t, q.Categories())
	assert.Empty(t, q.SpecificationKeys())
	assert.True(t, q.Equal(Query{}))
}

func TestBuildSwapsInvertedPrice(t *testing.T) {
	q, issues := Params{MinPrice: ptr(50), MaxPrice: ptr(10)}.Build()
	min, _ := q.MinPrice()
	max, _ := q.MaxPrice()
	assert.Equal(t, 10.0, min)
	assert.Equal(t, 50.0, max)
	require.Len(t, issues, 1)
	assert.Equal(t, "price", issues[0].Field)
}

func TestBuildClampsNegativePrice(t *testing.T) {
	q, issues := Params{MinPrice: ptr(-5)}.Build()
	min, ok := q.MinPrice()
	assert.True(t, ok)
	assert.Equal(t, 0.0, min)
	assert.Len(t, issues, 1)
}

func TestBuildStockStatusOrderAndUnknown(t *testing.T) {
	q, issues := Params{StockStatus: []string{"backorder", "IN_STOCK", "SOLD", "IN_STOCK"}}.Build()
	assert.Equal(t, []types.StockStatus{types.InStock, types.Backorder}, q.StockStatuses())
	require.Len(t, issues, 1)
	assert.Equal(t, "SOLD", issues[0].Value)
}

func TestWithOutAndWithOnly(t *testing.T) {
	q := New(Params{
		Brands:         []string{"x", "y"},
		MinPrice:       ptr(1),
		Specifications: map[string][]string{"color": {"red"}, "size": {"l"}},
	})

	withoutBrands := q.WithOut(Brands)
	assert.Nil(t, withoutBrands.Brands())
	assert.True(t, withoutBrands.Constrains(Price))
	assert.Equal(t, StringSet{"x", "y"}, q.Brands(), "original is unchanged")

	onlyY := q.WithOnly(Brands, "y")
	assert.Equal(t, StringSet{"y"}, onlyY.Brands())

	withoutColor := q.WithOut(SpecDimension("color"))
	assert.Equal(t, []string{"size"}, withoutColor.SpecificationKeys())

	onlyBlue := q.WithOnly(SpecDimension("color"), "blue")
	assert.Equal(t, StringSet{"blue"}, onlyBlue.Specification("color"))
	assert.Equal(t, StringSet{"red"}, q.Specification("color"))

	assert.False(t, q.WithOut(Price).Constrains(Price))
}

func TestDimensionsCanonicalOrder(t *testing.T) {
	q := New(Params{
		Specifications: map[string][]string{"b": {"1"}, "a": {"1"}},
		StockStatus:    []string{"IN_STOCK"},
		Search:         "phone",
		Brands:         []string{"x"},
	})
	assert.Equal(t, []Dimension{Search, Brands, StockStatus, SpecDimension("a"), SpecDimension("b")}, q.Dimensions())
}

func TestRestrictSpecifications(t *testing.T) {
	q := New(Params{Specifications: map[string][]string{"storage": {"64GB"}, "screen": {"6"}}})
	restricted := q.RestrictSpecifications("storage", "color")
	assert.Equal(t, []string{"storage"}, restricted.SpecificationKeys())
	assert.Len(t, q.SpecificationKeys(), 2)
}

func TestQueryJSONRoundTrip(t *testing.T) {
	q := New(Params{
		Search:         "pixel",
		Categories:     []string{"phones"},
		MaxPrice:       ptr(999.5),
		StockStatus:    []string{"LOW_STOCK"},
		Specifications: map[string][]string{"storage": {"128GB", "64GB"}},
	})
	data, err := jsoncompat.Marshal(q)
	require.NoError(t, err)

	var decoded Query
	require.NoError(t, jsoncompat.Unmarshal(data, &decoded))
	assert.True(t, q.Equal(decoded), "expected %s, got %s", q, decoded)
}

func TestStringSet(t *testing.T) {
	s := NewStringSet("b", "a", "b", " c ")
	assert.Equal(t, StringSet{"a", "b", "c"}, s)
	assert.True(t, s.Contains("c"))
	assert.False(t, s.Contains("d"))
	assert.Nil(t, NewStringSet())
}
