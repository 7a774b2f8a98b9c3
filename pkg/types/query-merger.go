package types

import (
	"context"
	"sync"
)

// QueryMerger coordinates concurrent set operations over ItemLists.
//
//	First Add with a non-nil result -> seed result with that set.
//	Subsequent Adds -> result = result ∩ next
//	Add returning nil is "no restriction" and never seeds.
type QueryMerger struct {
	ctx    context.Context
	wg     sync.WaitGroup
	l      sync.Mutex
	result *ItemList
}

func NewQueryMerger(ctx context.Context) *QueryMerger {
	return &QueryMerger{ctx: ctx}
}

func (m *QueryMerger) Add(getResult func(ctx context.Context) *ItemList) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		items := getResult(m.ctx)
		if items == nil {
			return
		}
		m.l.Lock()
		defer m.l.Unlock()
		if m.result == nil {
			m.result = items.Clone()
		} else {
			m.result.Intersect(items)
		}
	}()
}

// Wait blocks until every constraint has been applied. A nil result means no
// constraint restricted the set.
func (m *QueryMerger) Wait() (*ItemList, error) {
	m.wg.Wait()
	if err := m.ctx.Err(); err != nil {
		return nil, err
	}
	return m.result, nil
}
