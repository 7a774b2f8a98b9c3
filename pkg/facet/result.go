package facet

import "github.com/matst80/slask-catalog/pkg/filter"

type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

type NamedCount struct {
	Id       string `json:"id"`
	Slug     string `json:"slug,omitempty"`
	Name     string `json:"name"`
	Count    int    `json:"count"`
	Selected bool   `json:"selected,omitempty"`
}

// NamedFacet is a brand or collection facet. Values is omitted when the
// dimension could not be computed in time.
type NamedFacet struct {
	Values      []NamedCount `json:"values,omitempty"`
	Unavailable bool         `json:"unavailable,omitempty"`
}

type ValueFacet struct {
	Values      []ValueCount `json:"values,omitempty"`
	Unavailable bool         `json:"unavailable,omitempty"`
}

type SpecificationFacet struct {
	Key         string       `json:"key"`
	Name        string       `json:"name"`
	Values      []ValueCount `json:"values,omitempty"`
	Unavailable bool         `json:"unavailable,omitempty"`
}

type PriceRange struct {
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Unavailable bool    `json:"unavailable,omitempty"`
}

type CategoryCount struct {
	Id       string           `json:"id"`
	Slug     string           `json:"slug"`
	Name     string           `json:"name"`
	Count    int              `json:"count"`
	Children []*CategoryCount `json:"children,omitempty"`
}

type CategoryFacet struct {
	Nodes       []*CategoryCount `json:"nodes"`
	Unavailable bool             `json:"unavailable,omitempty"`
}

type Result struct {
	Price          PriceRange
	Brands         NamedFacet
	Collections    NamedFacet
	StockStatuses  ValueFacet
	Categories     CategoryFacet
	Specifications []SpecificationFacet
	// dimensions that degraded to unavailable
	Degraded []filter.Dimension
}

// Specification finds the facet for a key.
func (r *Result) Specification(key string) (*SpecificationFacet, bool) {
	for i := range r.Specifications {
		if r.Specifications[i].Key == key {
			return &r.Specifications[i], true
		}
	}
	return nil, false
}

// Count returns the count of a value in a value facet, or -1 when missing.
func (f ValueFacet) Count(value string) int {
	for _, v := range f.Values {
		if v.Value == value {
			return v.Count
		}
	}
	return -1
}

func (f SpecificationFacet) Count(value string) int {
	return ValueFacet{Values: f.Values}.Count(value)
}

func (f NamedFacet) Count(id string) int {
	for _, v := range f.Values {
		if v.Id == id {
			return v.Count
		}
	}
	return -1
}
