package loader

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

// newIdleLoader builds a loader whose fetch must never run; grouping is
// exercised directly.
func newIdleLoader(t *testing.T, validate func([]int) bool) *Loader[int, int] {
	t.Helper()
	l, err := New(Config[int, int]{
		Validate: validate,
		Fetch: func(context.Context, []int) ([]int, error) {
			t.Fatal("fetch must not run")
			return nil, nil
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return l
}

func newItems(l *Loader[int, int], keys ...int) []*Item[int, int] {
	items := make([]*Item[int, int], len(keys))
	for i, k := range keys {
		items[i] = &Item[int, int]{key: k, loader: l, done: make(chan struct{})}
	}
	return items
}

func groupKeys(groups []group[int, int]) [][]int {
	out := make([][]int, len(groups))
	for i, g := range groups {
		out[i] = g.keys
	}
	return out
}

func TestGroup_GreedyOrderPreserving(t *testing.T) {
	l := newIdleLoader(t, func(keys []int) bool { return len(keys) <= 3 })
	items := newItems(l, 1, 2, 3, 4, 5, 6, 7)

	l.mu.Lock()
	groups := l.groupLocked(items)
	l.mu.Unlock()

	want := [][]int{{1, 2, 3}, {4, 5, 6}, {7}}
	if got := groupKeys(groups); !reflect.DeepEqual(got, want) {
		t.Errorf("groups = %v, want %v", got, want)
	}
}

func TestGroup_SingleBatchWhenValidateNil(t *testing.T) {
	l := newIdleLoader(t, nil)
	items := newItems(l, 4, 2, 9)

	l.mu.Lock()
	groups := l.groupLocked(items)
	l.mu.Unlock()

	want := [][]int{{4, 2, 9}}
	if got := groupKeys(groups); !reflect.DeepEqual(got, want) {
		t.Errorf("groups = %v, want %v", got, want)
	}
}

func TestGroup_AbortedItemNeverGrouped(t *testing.T) {
	l := newIdleLoader(t, func(keys []int) bool { return len(keys) <= 2 })
	items := newItems(l, 1, 2, 3)
	items[1].aborted = true

	l.mu.Lock()
	groups := l.groupLocked(items)
	l.mu.Unlock()

	want := [][]int{{1, 3}}
	if got := groupKeys(groups); !reflect.DeepEqual(got, want) {
		t.Errorf("groups = %v, want %v", got, want)
	}
	if !errors.Is(items[1].err, ErrAborted) {
		t.Errorf("aborted item error = %v, want ErrAborted", items[1].err)
	}
	if items[0].settled || items[2].settled {
		t.Error("grouped items must stay pending")
	}
}

func TestGroup_OversizedKeyMidStream(t *testing.T) {
	// Key 5 never validates, even alone. The greedy pass must not try to
	// rescue it by regrouping its neighbors.
	l := newIdleLoader(t, func(keys []int) bool {
		if len(keys) > 2 {
			return false
		}
		for _, k := range keys {
			if k == 5 {
				return false
			}
		}
		return true
	})
	items := newItems(l, 1, 2, 5, 3)

	l.mu.Lock()
	groups := l.groupLocked(items)
	l.mu.Unlock()

	want := [][]int{{1, 2}, {3}}
	if got := groupKeys(groups); !reflect.DeepEqual(got, want) {
		t.Errorf("groups = %v, want %v", got, want)
	}
	if !errors.Is(items[2].err, ErrOversizedInput) {
		t.Errorf("oversized item error = %v, want ErrOversizedInput", items[2].err)
	}
}

func TestGroup_AllRejectedYieldsNoGroups(t *testing.T) {
	l := newIdleLoader(t, func(keys []int) bool { return false })
	items := newItems(l, 1, 2)

	l.mu.Lock()
	groups := l.groupLocked(items)
	l.mu.Unlock()

	if len(groups) != 0 {
		t.Fatalf("got %d groups, want 0", len(groups))
	}
	for _, it := range items {
		if !errors.Is(it.err, ErrOversizedInput) {
			t.Errorf("key %d error = %v, want ErrOversizedInput", it.key, it.err)
		}
	}
}
