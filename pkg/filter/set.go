package filter

import (
	"slices"
	"strings"
)

// StringSet is a sorted, duplicate free list of values. A nil set means the
// dimension is not constrained; an empty set is never produced.
type StringSet []string

func NewStringSet(values ...string) StringSet {
	ret := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		ret = append(ret, v)
	}
	if len(ret) == 0 {
		return nil
	}
	slices.Sort(ret)
	return StringSet(slices.Compact(ret))
}

func (s StringSet) Contains(value string) bool {
	_, found := slices.BinarySearch(s, value)
	return found
}

func (s StringSet) Len() int {
	return len(s)
}

func (s StringSet) Values() []string {
	return slices.Clone([]string(s))
}

func (s StringSet) Equal(other StringSet) bool {
	return slices.Equal(s, other)
}
