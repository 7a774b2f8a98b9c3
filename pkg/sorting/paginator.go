package sorting

import (
	"slices"

	"github.com/matst80/slask-catalog/pkg/types"
)

type Page struct {
	Items       []*types.Product
	TotalCount  int
	Offset      int
	Limit       int
	HasNext     bool
	HasPrevious bool
}

// Paginate sorts a copy of matched and slices [offset, offset+limit).
// A limit <= 0 returns everything from offset.
func Paginate(matched []*types.Product, key SortKey, dir Direction, offset, limit int) Page {
	sorted := slices.Clone(matched)
	slices.SortFunc(sorted, Comparator(key, dir))

	total := len(sorted)
	offset = max(offset, 0)
	start := min(offset, total)
	end := total
	if limit > 0 {
		end = min(start+limit, total)
	}
	return Page{
		Items:       sorted[start:end],
		TotalCount:  total,
		Offset:      offset,
		Limit:       limit,
		HasNext:     end < total,
		HasPrevious: start > 0,
	}
}

func (p Page) TotalPages() int {
	if p.Limit <= 0 {
		if p.TotalCount == 0 {
			return 0
		}
		return 1
	}
	return (p.TotalCount + p.Limit - 1) / p.Limit
}

// CurrentPage is 1-based.
func (p Page) CurrentPage() int {
	if p.Limit <= 0 {
		return 1
	}
	return p.Offset/p.Limit + 1
}
