package orderedindex

import "testing"

func TestAppendPreservesOrder(t *testing.T) {
	idx := New[string, int]()
	idx.Append("a", 1)
	idx.Append("b", 2)
	idx.Append("c", 3)

	var got []string
	idx.Each(func(n *Node[string, int]) bool {
		got = append(got, n.Key())
		return true
	})

	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestRemoveInteriorNode(t *testing.T) {
	idx := New[string, int]()
	idx.Append("a", 1)
	mid := idx.Append("b", 2)
	idx.Append("c", 3)

	idx.Remove(mid)

	var got []string
	idx.Each(func(n *Node[string, int]) bool {
		got = append(got, n.Key())
		return true
	})
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Fatalf("got %v, want [a c]", got)
	}
	if idx.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", idx.Len())
	}
}

func TestPopLeftEmpty(t *testing.T) {
	idx := New[string, int]()
	_, _, ok := idx.PopLeft()
	if ok {
		t.Fatal("PopLeft() on empty index returned ok=true")
	}
}

func TestPopLeftOrder(t *testing.T) {
	idx := New[string, int]()
	idx.Append("a", 1)
	idx.Append("b", 2)

	k, v, ok := idx.PopLeft()
	if !ok || k != "a" || v != 1 {
		t.Fatalf("PopLeft() = %v, %v, %v", k, v, ok)
	}
	if idx.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", idx.Len())
	}
}

func TestRemoveThenAppendReusesTail(t *testing.T) {
	idx := New[string, int]()
	a := idx.Append("a", 1)
	idx.Remove(a)
	idx.Append("b", 2)

	if idx.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", idx.Len())
	}
	if idx.head.Key() != "b" || idx.tail.Key() != "b" {
		t.Fatal("head/tail not updated after remove+append")
	}
}

func TestRemoveNilIsNoop(t *testing.T) {
	idx := New[string, int]()
	idx.Append("a", 1)
	idx.Remove(nil)
	if idx.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", idx.Len())
	}
}

func TestRemoveNodeOfOtherIndexIsNoop(t *testing.T) {
	idxA := New[string, int]()
	idxB := New[string, int]()
	n := idxA.Append("a", 1)

	idxB.Remove(n)
	if idxA.Len() != 1 {
		t.Fatalf("idxA.Len() = %d, want 1 (remove from unrelated index must not mutate)", idxA.Len())
	}
}
