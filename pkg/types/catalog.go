package types

import "time"

type ProductId = string

type StockStatus string

const (
	InStock      StockStatus = "IN_STOCK"
	LowStock     StockStatus = "LOW_STOCK"
	OutOfStock   StockStatus = "OUT_OF_STOCK"
	Backorder    StockStatus = "BACKORDER"
	Discontinued StockStatus = "DISCONTINUED"
)

// StockStatuses lists every known status in display order.
var StockStatuses = []StockStatus{InStock, LowStock, OutOfStock, Backorder, Discontinued}

func ParseStockStatus(s string) (StockStatus, bool) {
	for _, st := range StockStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

type Brand struct {
	Id   string `json:"id" yaml:"id"`
	Slug string `json:"slug,omitempty" yaml:"slug"`
	Name string `json:"name" yaml:"name"`
}

type Collection struct {
	Id   string `json:"id" yaml:"id"`
	Slug string `json:"slug,omitempty" yaml:"slug"`
	Name string `json:"name" yaml:"name"`
}

// SpecificationDefinition is a filterable attribute owned by a category.
// Key is the stable map key used in filter queries.
type SpecificationDefinition struct {
	Id         string `json:"id" yaml:"id"`
	Key        string `json:"key" yaml:"key"`
	Name       string `json:"name" yaml:"name"`
	CategoryId string `json:"categoryId" yaml:"categoryId"`
}

type SpecificationValue struct {
	ProductId     ProductId `json:"productId" yaml:"productId"`
	DefinitionId  string    `json:"definitionId" yaml:"definitionId"`
	DefinitionKey string    `json:"key" yaml:"key"`
	Value         string    `json:"value" yaml:"value"`
}

// Category is the flat, store-level representation. Children are derived
// by the category tree.
type Category struct {
	Id             string                    `json:"id" yaml:"id"`
	Slug           string                    `json:"slug" yaml:"slug"`
	Name           string                    `json:"name" yaml:"name"`
	ParentId       *string                   `json:"parentId,omitempty" yaml:"parentId"`
	Specifications []SpecificationDefinition `json:"specifications,omitempty" yaml:"specifications"`
}

func (c *Category) IsRoot() bool {
	return c.ParentId == nil || *c.ParentId == ""
}

// Product is the joined catalog read model: brand, category, collection
// membership and specification values keyed by definition key.
type Product struct {
	Id            ProductId         `json:"id" yaml:"id"`
	Sku           string            `json:"sku,omitempty" yaml:"sku"`
	Name          string            `json:"name" yaml:"name"`
	Slug          string            `json:"slug,omitempty" yaml:"slug"`
	Price         float64           `json:"price" yaml:"price"`
	BrandId       string            `json:"brandId,omitempty" yaml:"brandId"`
	CategoryId    string            `json:"categoryId,omitempty" yaml:"categoryId"`
	CollectionIds []string          `json:"collectionIds,omitempty" yaml:"collectionIds"`
	StockStatus   StockStatus       `json:"stockStatus" yaml:"stockStatus"`
	Specs         map[string]string `json:"specs,omitempty" yaml:"specs"`
	Popularity    float64           `json:"popularity" yaml:"popularity"`
	CreatedAt     time.Time         `json:"createdAt" yaml:"createdAt"`
	Img           string            `json:"img,omitempty" yaml:"img"`
}

// ProductSummary is what a listing returns for each product.
type ProductSummary struct {
	Id          ProductId         `json:"id"`
	Sku         string            `json:"sku,omitempty"`
	Name        string            `json:"name"`
	Slug        string            `json:"slug,omitempty"`
	Price       float64           `json:"price"`
	Img         string            `json:"img,omitempty"`
	StockStatus StockStatus       `json:"stockStatus"`
	Brand       *Brand            `json:"brand,omitempty"`
	CategoryId  string            `json:"categoryId,omitempty"`
	Specs       map[string]string `json:"specs,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// Catalog is one consistent read of the catalog store.
type Catalog struct {
	Products    []Product    `json:"products" yaml:"products"`
	Brands      []Brand      `json:"brands" yaml:"brands"`
	Collections []Collection `json:"collections" yaml:"collections"`
	Categories  []Category   `json:"categories" yaml:"categories"`
}
