/*
Package workqueue implements the per-(table, address family) scheduling
structure described in spec.md §4.2: four status sublists (init,
available, dealt, disabled), each an orderedindex.OrderedIndex, plus the
per-group last-state-change timestamp the scheduler relies on to give up
a scan early.
*/
package workqueue

import (
	"fmt"

	"github.com/cuemby/netwatch/pkg/orderedindex"
	"github.com/cuemby/netwatch/pkg/types"
)

// Clock abstracts the current time so tests can control it; production
// code uses the default (time.Now().Unix()).
type Clock func() int64

// WorkQueue owns the four status sublists for one (table, AF) pair.
type WorkQueue struct {
	sublists   map[types.StatusKind]*orderedindex.OrderedIndex[uint64, []uint64]
	index      map[uint64]*orderedindex.Node[uint64, []uint64]
	location   map[uint64]types.StatusKind
	timestamps map[uint64]int64
	now        Clock
}

// New creates an empty WorkQueue. now defaults to the wall clock if nil.
func New(now Clock) *WorkQueue {
	if now == nil {
		now = defaultClock
	}
	wq := &WorkQueue{
		sublists:   make(map[types.StatusKind]*orderedindex.OrderedIndex[uint64, []uint64]),
		index:      make(map[uint64]*orderedindex.Node[uint64, []uint64]),
		location:   make(map[uint64]types.StatusKind),
		timestamps: make(map[uint64]int64),
		now:        now,
	}
	for _, sk := range types.StatusKinds {
		wq.sublists[sk] = orderedindex.New[uint64, []uint64]()
	}
	return wq
}

// Add registers a new group under the given status kind. It fails if the
// group id is already indexed (spec.md §4.2).
func (wq *WorkQueue) Add(groupID uint64, rowIDs []uint64, sk types.StatusKind) error {
	if _, exists := wq.index[groupID]; exists {
		return fmt.Errorf("workqueue: group %d already added", groupID)
	}
	n := wq.sublists[sk].Append(groupID, rowIDs)
	wq.index[groupID] = n
	wq.location[groupID] = sk
	wq.timestamps[groupID] = wq.now()
	return nil
}

// Move unlinks groupID from its current sublist and appends it to
// newSK's tail, refreshing its timestamp (spec.md §9).
func (wq *WorkQueue) Move(groupID uint64, newSK types.StatusKind) error {
	n, exists := wq.index[groupID]
	if !exists {
		return fmt.Errorf("workqueue: group %d does not exist", groupID)
	}
	curSK := wq.location[groupID]
	rowIDs := n.Value()
	wq.sublists[curSK].Remove(n)

	newNode := wq.sublists[newSK].Append(groupID, rowIDs)
	wq.index[groupID] = newNode
	wq.location[groupID] = newSK
	wq.timestamps[groupID] = wq.now()
	return nil
}

// Remove unlinks groupID entirely and drops its timestamp.
func (wq *WorkQueue) Remove(groupID uint64) {
	n, exists := wq.index[groupID]
	if !exists {
		return
	}
	sk := wq.location[groupID]
	wq.sublists[sk].Remove(n)
	delete(wq.index, groupID)
	delete(wq.location, groupID)
	delete(wq.timestamps, groupID)
}

// Timestamp returns the last state-change time for groupID, and whether
// it is currently tracked.
func (wq *WorkQueue) Timestamp(groupID uint64) (int64, bool) {
	ts, ok := wq.timestamps[groupID]
	return ts, ok
}

// StatusOf returns the sublist groupID currently occupies.
func (wq *WorkQueue) StatusOf(groupID uint64) (types.StatusKind, bool) {
	sk, ok := wq.location[groupID]
	return sk, ok
}

// Sublist exposes the OrderedIndex backing one status kind, for the
// scheduler's allocation scan (spec.md §4.4.1).
func (wq *WorkQueue) Sublist(sk types.StatusKind) *orderedindex.OrderedIndex[uint64, []uint64] {
	return wq.sublists[sk]
}

// Contains reports whether groupID is currently tracked by this queue.
func (wq *WorkQueue) Contains(groupID uint64) bool {
	_, ok := wq.index[groupID]
	return ok
}

func defaultClock() int64 {
	return nowUnix()
}
