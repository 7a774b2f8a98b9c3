package filter

import "strings"

// Dimension names one independently constrained filter axis.
type Dimension string

const (
	Search        Dimension = "search"
	Categories    Dimension = "categories"
	SubCategories Dimension = "subCategories"
	Brands        Dimension = "brands"
	Collections   Dimension = "collections"
	Price         Dimension = "price"
	StockStatus   Dimension = "stockStatus"
)

const specDimensionPrefix = "spec:"

// FixedDimensions are the dimensions that exist regardless of category, in
// canonical order.
var FixedDimensions = []Dimension{Search, Categories, SubCategories, Brands, Collections, Price, StockStatus}

func SpecDimension(key string) Dimension {
	return Dimension(specDimensionPrefix + key)
}

// SpecKey returns the specification key for a specification dimension.
func (d Dimension) SpecKey() (string, bool) {
	return strings.CutPrefix(string(d), specDimensionPrefix)
}

func (d Dimension) IsSpecification() bool {
	return strings.HasPrefix(string(d), specDimensionPrefix)
}
