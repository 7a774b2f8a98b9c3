package catalog

import (
	"github.com/matst80/slask-catalog/pkg/facet"
	"github.com/matst80/slask-catalog/pkg/filter"
	"github.com/matst80/slask-catalog/pkg/types"
)

type Response struct {
	Products                []types.ProductSummary     `json:"products"`
	TotalCount              int                        `json:"totalCount"`
	TotalPages              int                        `json:"totalPages"`
	CurrentPage             int                        `json:"currentPage"`
	HasNextPage             bool                       `json:"hasNextPage"`
	HasPreviousPage         bool                       `json:"hasPreviousPage"`
	PriceRange              facet.PriceRange           `json:"priceRange"`
	AvailableBrands         facet.NamedFacet           `json:"availableBrands"`
	AvailableCategories     facet.CategoryFacet        `json:"availableCategories"`
	AvailableCollections    facet.NamedFacet           `json:"availableCollections"`
	AvailableSpecifications []facet.SpecificationFacet `json:"availableSpecifications"`
	AvailableStockStatuses  facet.ValueFacet           `json:"availableStockStatuses"`
	// Query is the normalized query the response was computed for.
	Query    filter.Query       `json:"query"`
	Degraded []filter.Dimension `json:"degraded,omitempty"`
}

// Specification finds the facet for a key.
func (r *Response) Specification(key string) (*facet.SpecificationFacet, bool) {
	for i := range r.AvailableSpecifications {
		if r.AvailableSpecifications[i].Key == key {
			return &r.AvailableSpecifications[i], true
		}
	}
	return nil, false
}

type CategoryNode struct {
	Id             string                          `json:"id"`
	Slug           string                          `json:"slug"`
	Name           string                          `json:"name"`
	ParentId       *string                         `json:"parentId,omitempty"`
	Specifications []types.SpecificationDefinition `json:"specifications,omitempty"`
	Children       []*CategoryNode                 `json:"children,omitempty"`
}

func summarize(p *types.Product, brand *types.Brand) types.ProductSummary {
	return types.ProductSummary{
		Id:          p.Id,
		Sku:         p.Sku,
		Name:        p.Name,
		Slug:        p.Slug,
		Price:       p.Price,
		Img:         p.Img,
		StockStatus: p.StockStatus,
		Brand:       brand,
		CategoryId:  p.CategoryId,
		Specs:       p.Specs,
		CreatedAt:   p.CreatedAt,
	}
}
