package filter

import (
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/matst80/slask-catalog/pkg/common/jsoncompat"
	"github.com/matst80/slask-catalog/pkg/types"
)

// Params is the mutable input used to build a Query. Empty values mean the
// dimension is absent.
type Params struct {
	Search         string              `json:"search,omitempty" yaml:"search,omitempty"`
	Categories     []string            `json:"categories,omitempty" yaml:"categories,omitempty"`
	SubCategories  []string            `json:"subCategories,omitempty" yaml:"subCategories,omitempty"`
	Brands         []string            `json:"brands,omitempty" yaml:"brands,omitempty"`
	Collections    []string            `json:"collections,omitempty" yaml:"collections,omitempty"`
	MinPrice       *float64            `json:"minPrice,omitempty" yaml:"minPrice,omitempty"`
	MaxPrice       *float64            `json:"maxPrice,omitempty" yaml:"maxPrice,omitempty"`
	StockStatus    []string            `json:"stockStatus,omitempty" yaml:"stockStatus,omitempty"`
	Specifications map[string][]string `json:"specifications,omitempty" yaml:"specifications,omitempty"`
}

// Query is an immutable, normalized filter state. The zero value matches
// the whole catalog.
type Query struct {
	search        string
	categories    StringSet
	subCategories StringSet
	brands        StringSet
	collections   StringSet
	minPrice      *float64
	maxPrice      *float64
	stockStatus   []types.StockStatus
	specs         map[string]StringSet
}

// New builds a Query, silently applying the coercion policy.
func New(p Params) Query {
	q, _ := p.Build()
	return q
}

// Build normalizes the parameters. Bounds that are not finite are dropped,
// negative bounds are clamped to zero and an inverted range is swapped; each
// correction is reported but never rejects the query.
func (p Params) Build() (Query, []*types.ValidationError) {
	var issues []*types.ValidationError
	q := Query{
		search:        strings.TrimSpace(p.Search),
		categories:    NewStringSet(p.Categories...),
		subCategories: NewStringSet(p.SubCategories...),
		brands:        NewStringSet(p.Brands...),
		collections:   NewStringSet(p.Collections...),
	}

	q.minPrice = normalizeBound("minPrice", p.MinPrice, &issues)
	q.maxPrice = normalizeBound("maxPrice", p.MaxPrice, &issues)
	if q.minPrice != nil && q.maxPrice != nil && *q.minPrice > *q.maxPrice {
		issues = append(issues, &types.ValidationError{
			Field:  "price",
			Value:  formatFloat(*q.minPrice) + ">" + formatFloat(*q.maxPrice),
			Reason: "bounds swapped",
		})
		q.minPrice, q.maxPrice = q.maxPrice, q.minPrice
	}

	if len(p.StockStatus) > 0 {
		seen := make(map[types.StockStatus]struct{}, len(p.StockStatus))
		for _, s := range p.StockStatus {
			s = strings.ToUpper(strings.TrimSpace(s))
			if s == "" {
				continue
			}
			st, ok := types.ParseStockStatus(s)
			if !ok {
				issues = append(issues, &types.ValidationError{Field: string(StockStatus), Value: s, Reason: "unknown stock status"})
				continue
			}
			seen[st] = struct{}{}
		}
		for _, st := range types.StockStatuses {
			if _, ok := seen[st]; ok {
				q.stockStatus = append(q.stockStatus, st)
			}
		}
	}

	for key, values := range p.Specifications {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		set := NewStringSet(values...)
		if set == nil {
			continue
		}
		if q.specs == nil {
			q.specs = make(map[string]StringSet)
		}
		if existing, ok := q.specs[key]; ok {
			set = NewStringSet(append(existing.Values(), set...)...)
		}
		q.specs[key] = set
	}
	return q, issues
}

func normalizeBound(field string, v *float64, issues *[]*types.ValidationError) *float64 {
	if v == nil {
		return nil
	}
	value := *v
	if math.IsNaN(value) || math.IsInf(value, 0) {
		*issues = append(*issues, &types.ValidationError{Field: field, Value: formatFloat(value), Reason: "not a finite number"})
		return nil
	}
	if value < 0 {
		*issues = append(*issues, &types.ValidationError{Field: field, Value: formatFloat(value), Reason: "clamped to zero"})
		value = 0
	}
	return &value
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Params converts the query back to its mutable form.
func (q Query) Params() Params {
	p := Params{
		Search:        q.search,
		Categories:    q.categories.Values(),
		SubCategories: q.subCategories.Values(),
		Brands:        q.brands.Values(),
		Collections:   q.collections.Values(),
		MinPrice:      copyFloat(q.minPrice),
		MaxPrice:      copyFloat(q.maxPrice),
	}
	for _, st := range q.stockStatus {
		p.StockStatus = append(p.StockStatus, string(st))
	}
	if len(q.specs) > 0 {
		p.Specifications = make(map[string][]string, len(q.specs))
		for key, set := range q.specs {
			p.Specifications[key] = set.Values()
		}
	}
	return p
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func (q Query) Search() string           { return q.search }
func (q Query) Categories() StringSet    { return q.categories }
func (q Query) SubCategories() StringSet { return q.subCategories }
func (q Query) Brands() StringSet        { return q.brands }
func (q Query) Collections() StringSet   { return q.collections }

func (q Query) MinPrice() (float64, bool) {
	if q.minPrice == nil {
		return 0, false
	}
	return *q.minPrice, true
}

func (q Query) MaxPrice() (float64, bool) {
	if q.maxPrice == nil {
		return 0, false
	}
	return *q.maxPrice, true
}

// StockStatuses are returned in enum order.
func (q Query) StockStatuses() []types.StockStatus {
	return slices.Clone(q.stockStatus)
}

func (q Query) Specification(key string) StringSet {
	return q.specs[key]
}

func (q Query) SpecificationKeys() []string {
	return slices.Sorted(maps.Keys(q.specs))
}

// HasCategoryFilter reports whether categories or sub-categories are set.
func (q Query) HasCategoryFilter() bool {
	return q.categories != nil || q.subCategories != nil
}

// Constrains reports whether the dimension is part of the query.
func (q Query) Constrains(d Dimension) bool {
	switch d {
	case Search:
		return q.search != ""
	case Categories:
		return q.categories != nil
	case SubCategories:
		return q.subCategories != nil
	case Brands:
		return q.brands != nil
	case Collections:
		return q.collections != nil
	case Price:
		return q.minPrice != nil || q.maxPrice != nil
	case StockStatus:
		return q.stockStatus != nil
	}
	if key, ok := d.SpecKey(); ok {
		_, found := q.specs[key]
		return found
	}
	return false
}

// Dimensions lists the constrained dimensions in canonical order, with
// specification dimensions last ordered by key.
func (q Query) Dimensions() []Dimension {
	var ret []Dimension
	for _, d := range FixedDimensions {
		if q.Constrains(d) {
			ret = append(ret, d)
		}
	}
	for _, key := range q.SpecificationKeys() {
		ret = append(ret, SpecDimension(key))
	}
	return ret
}

func (q Query) IsEmpty() bool {
	return len(q.Dimensions()) == 0
}

// WithOut returns a copy with the dimension removed.
func (q Query) WithOut(d Dimension) Query {
	p := q.Params()
	switch d {
	case Search:
		p.Search = ""
	case Categories:
		p.Categories = nil
	case SubCategories:
		p.SubCategories = nil
	case Brands:
		p.Brands = nil
	case Collections:
		p.Collections = nil
	case Price:
		p.MinPrice, p.MaxPrice = nil, nil
	case StockStatus:
		p.StockStatus = nil
	default:
		if key, ok := d.SpecKey(); ok {
			delete(p.Specifications, key)
		}
	}
	return New(p)
}

// WithOnly returns a copy where the dimension is replaced by exactly one
// value. Price has no discrete values and is returned unchanged.
func (q Query) WithOnly(d Dimension, value string) Query {
	p := q.Params()
	only := []string{value}
	switch d {
	case Search:
		p.Search = value
	case Categories:
		p.Categories = only
	case SubCategories:
		p.SubCategories = only
	case Brands:
		p.Brands = only
	case Collections:
		p.Collections = only
	case StockStatus:
		p.StockStatus = only
	default:
		if key, ok := d.SpecKey(); ok {
			if p.Specifications == nil {
				p.Specifications = make(map[string][]string, 1)
			}
			p.Specifications[key] = only
		}
	}
	return New(p)
}

// RestrictSpecifications keeps only the specification keys in allowed.
// Unknown keys are dropped rather than rejected.
func (q Query) RestrictSpecifications(allowed ...string) Query {
	if len(q.specs) == 0 {
		return q
	}
	keep := make(map[string]struct{}, len(allowed))
	for _, key := range allowed {
		keep[key] = struct{}{}
	}
	p := q.Params()
	for key := range p.Specifications {
		if _, ok := keep[key]; !ok {
			delete(p.Specifications, key)
		}
	}
	return New(p)
}

func equalBound(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (q Query) Equal(other Query) bool {
	return q.search == other.search &&
		q.categories.Equal(other.categories) &&
		q.subCategories.Equal(other.subCategories) &&
		q.brands.Equal(other.brands) &&
		q.collections.Equal(other.collections) &&
		equalBound(q.minPrice, other.minPrice) &&
		equalBound(q.maxPrice, other.maxPrice) &&
		slices.Equal(q.stockStatus, other.stockStatus) &&
		maps.EqualFunc(q.specs, other.specs, StringSet.Equal)
}

func (q Query) String() string {
	return Encode(q)
}

func (q Query) MarshalJSON() ([]byte, error) {
	return jsoncompat.Marshal(q.Params())
}

func (q *Query) UnmarshalJSON(data []byte) error {
	var p Params
	if err := jsoncompat.Unmarshal(data, &p); err != nil {
		return err
	}
	*q = New(p)
	return nil
}
