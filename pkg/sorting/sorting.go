package sorting

import (
	"cmp"
	"strings"

	"github.com/matst80/slask-catalog/pkg/types"
)

type SortKey string

const (
	CreatedAt  SortKey = "createdAt"
	Price      SortKey = "price"
	Name       SortKey = "name"
	Popularity SortKey = "popularity"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

const (
	DefaultKey       = CreatedAt
	DefaultDirection = Desc
)

func ParseSortKey(s string) (SortKey, bool) {
	switch SortKey(s) {
	case CreatedAt, Price, Name, Popularity:
		return SortKey(s), true
	}
	// the storefront historically sent "newest" and "popular"
	switch s {
	case "newest":
		return CreatedAt, true
	case "popular":
		return Popularity, true
	}
	return DefaultKey, false
}

func ParseDirection(s string) (Direction, bool) {
	switch Direction(strings.ToLower(s)) {
	case Asc:
		return Asc, true
	case Desc:
		return Desc, true
	}
	return DefaultDirection, false
}

func compareBy(key SortKey, a, b *types.Product) int {
	switch key {
	case Price:
		return cmp.Compare(a.Price, b.Price)
	case Name:
		return cmp.Or(
			cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)),
			cmp.Compare(a.Name, b.Name),
		)
	case Popularity:
		return cmp.Compare(a.Popularity, b.Popularity)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

// Comparator orders by the key in the requested direction and always breaks
// ties by ascending product id, so equal primary values page stably.
func Comparator(key SortKey, dir Direction) func(a, b *types.Product) int {
	return func(a, b *types.Product) int {
		primary := compareBy(key, a, b)
		if dir == Desc {
			primary = -primary
		}
		return cmp.Or(primary, cmp.Compare(a.Id, b.Id))
	}
}
