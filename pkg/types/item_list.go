package types

import (
	"iter"

	"github.com/RoaringBitmap/roaring/v2"
)

// ItemList is a set of dense product positions within one catalog snapshot.
type ItemList struct {
	bm roaring.Bitmap
}

func NewItemList(ids ...uint32) *ItemList {
	l := &ItemList{}
	l.bm.AddMany(ids)
	return l
}

// NewRangeList returns the positions [0, n).
func NewRangeList(n int) *ItemList {
	l := &ItemList{}
	l.bm.AddRange(0, uint64(n))
	return l
}

func (l *ItemList) AddId(id uint32) {
	l.bm.Add(id)
}

func (l *ItemList) Contains(id uint32) bool {
	return l.bm.Contains(id)
}

func (l *ItemList) Len() int {
	return int(l.bm.GetCardinality())
}

func (l *ItemList) IsEmpty() bool {
	return l.bm.IsEmpty()
}

func (l *ItemList) Clone() *ItemList {
	return &ItemList{bm: *l.bm.Clone()}
}

func (l *ItemList) Intersect(other *ItemList) {
	l.bm.And(&other.bm)
}

func (l *ItemList) Merge(other *ItemList) {
	l.bm.Or(&other.bm)
}

func (l *ItemList) Exclude(other *ItemList) {
	l.bm.AndNot(&other.bm)
}

// IntersectionLen counts the common ids without materializing the intersection.
func (l *ItemList) IntersectionLen(other *ItemList) int {
	return int(l.bm.AndCardinality(&other.bm))
}

func (l *ItemList) HasIntersection(other *ItemList) bool {
	return l.bm.Intersects(&other.bm)
}

func (l *ItemList) ToSlice() []uint32 {
	return l.bm.ToArray()
}

// All yields the ids in ascending order.
func (l *ItemList) All() iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		it := l.bm.Iterator()
		for it.HasNext() {
			if !yield(it.Next()) {
				return
			}
		}
	}
}

// Intersection combines lists where nil means "no restriction". The result
// is nil only when every input is nil.
func Intersection(lists ...*ItemList) *ItemList {
	var result *ItemList
	for _, l := range lists {
		if l == nil {
			continue
		}
		if result == nil {
			result = l.Clone()
			continue
		}
		result.Intersect(l)
	}
	return result
}
