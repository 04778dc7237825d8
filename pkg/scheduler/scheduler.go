/*
Package scheduler implements the dealer's core decision functions:
allocate, mark_complete, insert_services, and update_alias. Every
function here is written to run to completion without yielding — they
touch only MemoryStore and WorkQueue, and Scheduler wraps each call in
one mutex so that no concurrent HTTP handler or catalogue rebuild can
observe a torn state (spec.md §5, "Global mutable state").
*/
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/netwatch/pkg/events"
	"github.com/cuemby/netwatch/pkg/log"
	"github.com/cuemby/netwatch/pkg/metrics"
	"github.com/cuemby/netwatch/pkg/store"
	"github.com/cuemby/netwatch/pkg/types"
	"github.com/rs/zerolog"
)

// Scheduler is the sole writer of MemoryStore and its WorkQueues.
type Scheduler struct {
	store  *store.MemoryStore
	logger zerolog.Logger
	mu     sync.Mutex
	events *events.Broker
}

// New creates a Scheduler over ms. broker may be nil if no subscriber
// cares about scheduling events.
func New(ms *store.MemoryStore, broker *events.Broker) *Scheduler {
	return &Scheduler{
		store:  ms,
		logger: log.WithComponent("scheduler"),
		events: broker,
	}
}

func (s *Scheduler) publish(t events.EventType, msg string, meta map[string]string) {
	if s.events == nil {
		return
	}
	s.events.Publish(&events.Event{Type: t, Message: msg, Metadata: meta})
}

// Allocate implements spec.md §4.4.1: it returns one scheduling group's
// rows for a worker advertising stack, honoring an optional table
// filter, or nil if nothing is currently eligible.
func (s *Scheduler) Allocate(stack []types.AddressFamily, tableFilter *types.TableType, now int64, freq int64) ([]types.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.AllocationLatency)

	if freq <= 0 {
		freq = types.MonitorFrequencySeconds
	}

	tables := types.TableTypes
	if tableFilter != nil {
		tables = []types.TableType{*tableFilter}
	}
	afs := stack
	if len(afs) == 0 {
		afs = types.ValidAFs
	}

	for _, tt := range tables {
		for _, af := range afs {
			rows, err := s.allocateFrom(tt, af, now, freq)
			if err != nil {
				return nil, err
			}
			if rows != nil {
				metrics.AllocationsTotal.WithLabelValues(string(tt), "dealt").Inc()
				s.publish(events.EventGroupDealt, "group dealt", map[string]string{"table": string(tt), "af": string(af)})
				return rows, nil
			}
		}
	}
	metrics.AllocationsTotal.WithLabelValues("none", "empty").Inc()
	return nil, nil
}

// allocateFrom scans one (table, af) WorkQueue in the fixed SK priority
// [init, available, dealt]. Because WorkQueue.Move refreshes timestamps
// and invariant 6 guarantees a group occupies exactly one sublist,
// entries within a sublist are in nondecreasing order of last change —
// so inspecting only the head is sufficient to decide whether to take it
// or give up on the whole sublist.
func (s *Scheduler) allocateFrom(tt types.TableType, af types.AddressFamily, now, freq int64) ([]types.Row, error) {
	wq := s.store.WorkQueue(tt, af)

	for _, sk := range []types.StatusKind{types.StatusInit, types.StatusAvailable, types.StatusDealt} {
		head := wq.Sublist(sk).Head()
		if head == nil {
			continue
		}
		groupID := head.Key()
		ts, _ := wq.Timestamp(groupID)
		elapsed := now - ts
		if elapsed < 0 {
			elapsed = 0
		}

		switch sk {
		case types.StatusInit:
			if err := wq.Move(groupID, types.StatusDealt); err != nil {
				return nil, err
			}
			return s.groupRows(groupID)
		case types.StatusAvailable:
			if elapsed < freq {
				continue
			}
			if err := wq.Move(groupID, types.StatusDealt); err != nil {
				return nil, err
			}
			return s.groupRows(groupID)
		case types.StatusDealt:
			if elapsed < types.WorkerTimeoutSeconds {
				continue
			}
			// Reclaim: move dealt -> dealt to refresh the timestamp.
			if err := wq.Move(groupID, types.StatusDealt); err != nil {
				return nil, err
			}
			s.publish(events.EventGroupReclaimed, "group reclaimed after worker timeout", map[string]string{"table": string(tt), "af": string(af)})
			return s.groupRows(groupID)
		}
	}
	return nil, nil
}

func (s *Scheduler) groupRows(groupID uint64) ([]types.Row, error) {
	g, ok := s.store.GetGroup(groupID)
	if !ok {
		return nil, fmt.Errorf("scheduler: group %d vanished between workqueue and store", groupID)
	}
	rows := make([]types.Row, 0, len(g.RowIDs))
	for _, id := range g.RowIDs {
		row, ok := s.store.Row(g.TableType, id)
		if !ok {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// MarkComplete implements spec.md §4.4.2.
func (s *Scheduler) MarkComplete(isSuccess bool, statusID uint64, t int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markComplete(isSuccess, statusID, t)
}

func (s *Scheduler) markComplete(isSuccess bool, statusID uint64, t int64) error {
	st, ok := s.store.GetStatus(statusID)
	if !ok {
		return fmt.Errorf("%w: %d", store.ErrUnknownStatus, statusID)
	}

	var target types.StatusKind
	if st.TableType == types.TableImports {
		if isSuccess || st.TestNo >= types.ImportTestNo {
			target = types.StatusDisabled
		} else {
			target = types.StatusAvailable
		}
	} else {
		target = types.StatusAvailable
	}

	if isSuccess {
		if st.LastUptime != 0 {
			delta := t - st.LastUptime
			if delta > 0 {
				st.Uptime += delta
			}
		}
		if st.Uptime > st.MaxUptime {
			st.MaxUptime = st.Uptime
		}
		st.LastUptime = t
		st.LastSuccess = t
	} else {
		st.FailedTests++
		st.Uptime = 0
	}
	st.TestNo++
	st.LastStatus = t
	st.Status = target

	wq := s.store.WorkQueue(st.TableType, s.afOf(st))
	if err := wq.Move(s.groupOf(st), target); err != nil {
		return fmt.Errorf("scheduler: marking status %d complete: %w", statusID, err)
	}

	result := "failure"
	if isSuccess {
		result = "success"
	}
	metrics.CompletionsTotal.WithLabelValues(result).Inc()
	if target == types.StatusDisabled {
		s.publish(events.EventImportDisabled, "import disabled after exhausting retries", map[string]string{"status_id": fmt.Sprint(statusID)})
	} else {
		s.publish(events.EventGroupCompleted, "group completed", map[string]string{"status_id": fmt.Sprint(statusID), "result": result})
	}
	return nil
}

// afOf and groupOf resolve a Status back to the af/group_id of its
// owning row, since Status itself only carries table_type and row_id.
func (s *Scheduler) afOf(st *types.Status) types.AddressFamily {
	row, ok := s.store.Row(st.TableType, st.RowID)
	if !ok {
		return types.AFv4
	}
	return row.RowAF()
}

func (s *Scheduler) groupOf(st *types.Status) uint64 {
	row, ok := s.store.Row(st.TableType, st.RowID)
	if !ok {
		return 0
	}
	return row.RowGroupID()
}

// InsertServices implements spec.md §4.4.3: a transaction over a list of
// prospective groups, followed by advancing the originating import's
// status. Each group is an ordered list of services sharing one new
// group id.
func (s *Scheduler) InsertServices(importsList [][]types.Service, statusID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	anyInserted := false
	for _, group := range importsList {
		if len(group) == 0 {
			continue
		}
		if group[0].Type == types.ServiceStunChange {
			aliasCount := 0
			for _, svc := range group {
				if svc.AliasID != nil {
					aliasCount++
				}
			}
			if aliasCount != 0 && aliasCount != 4 {
				s.logger.Warn().Int("alias_count", aliasCount).Msg("rejecting stun-change group with invalid alias count")
				continue
			}
		}

		groupID, inserted, err := s.insertServiceGroup(group)
		if err != nil {
			return err
		}
		if !inserted {
			continue
		}
		anyInserted = true

		g, ok := s.store.GetGroup(groupID)
		if !ok {
			continue
		}
		af := group[0].AF
		if err := s.store.AddWork(types.TableServices, af, groupID, g.RowIDs, types.StatusInit); err != nil {
			return fmt.Errorf("scheduler: enqueueing inserted group %d: %w", groupID, err)
		}
		s.publish(events.EventServiceInserted, "service group inserted", map[string]string{"group_id": fmt.Sprint(groupID)})
	}

	return s.markComplete(anyInserted, statusID, time.Now().Unix())
}

// insertServiceGroup inserts every member of one prospective group,
// sharing a single new group id. On DuplicateRecord the whole group is
// skipped, but any rows already inserted before the duplicate was hit
// remain in the store (spec.md §9 Open Questions: this is the accepted,
// documented tradeoff rather than a transactional rollback).
func (s *Scheduler) insertServiceGroup(group []types.Service) (groupID uint64, inserted bool, err error) {
	for i := range group {
		svc := group[i]
		svc.GroupID = groupID
		row, insertErr := s.store.InsertService(svc)
		if insertErr != nil {
			metrics.DuplicateRecordsTotal.WithLabelValues(string(types.TableServices)).Inc()
			return groupID, false, nil
		}
		groupID = row.GroupID
		inserted = true
	}
	return groupID, inserted, nil
}

// UpdateAlias implements spec.md §4.4.4.
func (s *Scheduler) UpdateAlias(aliasID uint64, newIP string, now int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.store.GetAlias(aliasID); !ok {
		return fmt.Errorf("%w: %d", store.ErrUnknownAlias, aliasID)
	}

	canon, err := store.EnsurePublicIP(newIP)
	if err != nil {
		return err
	}

	// Decide cascades against each row's state before the alias itself
	// changes; shouldCascade only looks at the row's own IP/Status, so
	// the alias update and the row updates below may happen in either
	// order without changing the outcome.
	cascaded := 0
	for _, row := range s.store.RecordsByAlias(aliasID) {
		if !s.shouldCascade(row, now) {
			continue
		}
		row.SetRowIP(canon)
		cascaded++
	}
	if err := s.store.SetAliasIP(aliasID, canon); err != nil {
		return err
	}

	metrics.AliasCascadesTotal.Add(float64(cascaded))
	s.publish(events.EventAliasUpdated, "alias ip updated", map[string]string{"alias_id": fmt.Sprint(aliasID)})
	return nil
}

// shouldCascade implements the cascade rule of spec.md §4.4.4: a
// dependent row's ip is only overwritten if it is currently stale, not
// an import with test history, or the service has been down long
// enough that a fresh IP is worth the risk of flip-flopping.
func (s *Scheduler) shouldCascade(row types.Row, now int64) bool {
	if !store.IsPublicIP(row.RowIP()) {
		return true
	}

	st, ok := s.statusOf(row)
	if !ok {
		return true
	}

	if row.RowTableType() == types.TableImports && st.TestNo == 0 {
		return true
	}

	if st.TestNo >= 2 && st.LastSuccess == 0 && st.LastUptime == 0 {
		return true
	}
	if st.LastUptime != 0 && now-st.LastUptime > 2*types.MaxServerDowntimeSeconds {
		return true
	}
	return false
}

// statusOf resolves a row to its Status via its group, since Group is
// the one place every row kind (including Alias, which carries no
// status_id field of its own) records its status_id.
func (s *Scheduler) statusOf(row types.Row) (*types.Status, bool) {
	g, ok := s.store.GetGroup(row.RowGroupID())
	if !ok {
		return nil, false
	}
	return s.store.GetStatus(g.StatusID)
}
