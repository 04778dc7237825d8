package workqueue

import (
	"testing"

	"github.com/cuemby/netwatch/pkg/orderedindex"
	"github.com/cuemby/netwatch/pkg/types"
)

func fixedClock(t int64) Clock {
	return func() int64 { return t }
}

func TestAddDuplicateGroupFails(t *testing.T) {
	wq := New(fixedClock(100))
	if err := wq.Add(1, []uint64{10}, types.StatusInit); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := wq.Add(1, []uint64{10}, types.StatusAvailable); err == nil {
		t.Fatal("expected error adding duplicate group id")
	}
}

func TestMoveRefreshesTimestamp(t *testing.T) {
	clockVal := int64(100)
	wq := New(func() int64 { return clockVal })
	_ = wq.Add(1, []uint64{10}, types.StatusInit)

	clockVal = 200
	if err := wq.Move(1, types.StatusDealt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ts, ok := wq.Timestamp(1)
	if !ok || ts != 200 {
		t.Fatalf("Timestamp() = %d, %v, want 200, true", ts, ok)
	}

	sk, ok := wq.StatusOf(1)
	if !ok || sk != types.StatusDealt {
		t.Fatalf("StatusOf() = %v, want dealt", sk)
	}

	// Confirm it's gone from init and present in dealt.
	if wq.Sublist(types.StatusInit).Len() != 0 {
		t.Fatal("group still present in init sublist after move")
	}
	if wq.Sublist(types.StatusDealt).Len() != 1 {
		t.Fatal("group not present in dealt sublist after move")
	}
}

func TestMoveUnknownGroupFails(t *testing.T) {
	wq := New(fixedClock(0))
	if err := wq.Move(99, types.StatusDealt); err == nil {
		t.Fatal("expected error moving unknown group")
	}
}

func TestRemoveDropsTimestampAndMembership(t *testing.T) {
	wq := New(fixedClock(0))
	_ = wq.Add(1, []uint64{10}, types.StatusInit)
	wq.Remove(1)

	if wq.Contains(1) {
		t.Fatal("group still tracked after Remove")
	}
	if _, ok := wq.Timestamp(1); ok {
		t.Fatal("timestamp still present after Remove")
	}
	if wq.Sublist(types.StatusInit).Len() != 0 {
		t.Fatal("sublist still contains node after Remove")
	}
}

// TestGroupInExactlyOneSublist is a direct check of invariant 6 from
// spec.md §3: a group_id appears in exactly one status sublist at a time.
func TestGroupInExactlyOneSublist(t *testing.T) {
	wq := New(fixedClock(0))
	_ = wq.Add(1, []uint64{10}, types.StatusInit)
	_ = wq.Move(1, types.StatusAvailable)
	_ = wq.Move(1, types.StatusDealt)

	count := 0
	for _, sk := range types.StatusKinds {
		wq.Sublist(sk).Each(func(n *orderedindex.Node[uint64, []uint64]) bool {
			if n.Key() == 1 {
				count++
			}
			return true
		})
	}
	if count != 1 {
		t.Fatalf("group 1 found in %d sublists, want 1", count)
	}
}
