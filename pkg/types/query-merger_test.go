package types

import (
	"context"
	"testing"
)

func TestQueuedMerger(t *testing.T) {
	merger := NewQueryMerger(context.Background())

	merger.Add(func(_ context.Context) *ItemList {
		return NewItemList(1, 2)
	})
	merger.Add(func(_ context.Context) *ItemList {
		return nil
	})
	merger.Add(func(_ context.Context) *ItemList {
		return NewItemList(2, 3)
	})

	result, err := merger.Wait()
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if result.Len() != 1 || !result.Contains(2) {
		t.Errorf("expected intersection to be {2}, got len=%d contains2=%v", result.Len(), result.Contains(2))
	}
}

func TestQueuedMergerWithoutConstraints(t *testing.T) {
	merger := NewQueryMerger(context.Background())
	merger.Add(func(_ context.Context) *ItemList { return nil })
	result, err := merger.Wait()
	if err != nil || result != nil {
		t.Errorf("expected unrestricted result, got %v %v", result, err)
	}
}
