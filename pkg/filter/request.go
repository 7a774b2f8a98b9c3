package filter

import (
	"math"
	"net/url"
	"strconv"

	"github.com/matst80/slask-catalog/pkg/sorting"
)

const (
	DefaultPageSize = 24
	MaxPageSize     = 100
)

type PageLimits struct {
	DefaultSize int
	MaxSize     int
}

func (l PageLimits) normalized() PageLimits {
	if l.DefaultSize <= 0 {
		l.DefaultSize = DefaultPageSize
	}
	if l.MaxSize <= 0 {
		l.MaxSize = MaxPageSize
	}
	l.DefaultSize = min(l.DefaultSize, l.MaxSize)
	return l
}

// SearchRequest is a filter query plus presentation scalars. Page is 1-based.
type SearchRequest struct {
	Query    Query             `json:"query"`
	Sort     sorting.SortKey   `json:"sort"`
	Order    sorting.Direction `json:"order"`
	Page     int               `json:"page"`
	PageSize int               `json:"pageSize"`
}

func NewSearchRequest(q Query, limits PageLimits) SearchRequest {
	limits = limits.normalized()
	return SearchRequest{
		Query:    q,
		Sort:     sorting.DefaultKey,
		Order:    sorting.DefaultDirection,
		Page:     1,
		PageSize: limits.DefaultSize,
	}
}

// ParseSearchRequest decodes the filter dimensions and presentation scalars.
// Unknown sort keys and directions fall back to the defaults and the page
// size is clamped to the limits.
func ParseSearchRequest(values url.Values, limits PageLimits) SearchRequest {
	limits = limits.normalized()
	q, _ := DecodeValues(values)
	scalars := decodeScalars(values)

	sr := NewSearchRequest(q, limits)
	sr.Sort, _ = sorting.ParseSortKey(scalars.Sort)
	sr.Order, _ = sorting.ParseDirection(scalars.Order)
	if scalars.Size > 0 {
		sr.PageSize = min(scalars.Size, limits.MaxSize)
	}
	sr.Page = clampPage(scalars.Page, sr.PageSize)
	return sr
}

// clampPage keeps the page at least 1 and small enough that its offset
// fits in an int.
func clampPage(page, size int) int {
	return min(max(page, 1), math.MaxInt/max(size, 1))
}

func (s SearchRequest) Offset() int {
	return (clampPage(s.Page, s.PageSize) - 1) * s.PageSize
}

// Encode renders the canonical query string including the presentation
// scalars. Equal requests produce equal strings.
func (s SearchRequest) Encode() string {
	var b queryBuilder
	encodeInto(&b, s.Query)
	b.add("sort", string(s.Sort))
	b.add("order", string(s.Order))
	b.add("page", strconv.Itoa(s.Page))
	b.add("size", strconv.Itoa(s.PageSize))
	return b.sb.String()
}
