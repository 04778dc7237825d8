/*
Package store implements MemoryStore, the dealer's authoritative
in-memory database: the aliases/imports/services tables, their 1:1
Status rows, group membership, and every secondary index needed to keep
spec.md §3's eight invariants holding outside of a single call.

MemoryStore is not safe for concurrent use by itself; scheduler.Scheduler
wraps every call in one process-wide mutex, per spec.md §9's "Global
mutable state" note.
*/
package store

import (
	"fmt"
	"strings"

	"github.com/cuemby/netwatch/pkg/types"
	"github.com/cuemby/netwatch/pkg/workqueue"
)

// MemoryStore holds every authoritative table and secondary index.
type MemoryStore struct {
	aliases  map[uint64]*types.Alias
	imports  map[uint64]*types.Import
	services map[uint64]*types.Service
	statuses map[uint64]*types.Status
	groups   map[uint64]*types.Group

	uniqueAliases  map[string]uint64 // canonical key -> alias id
	uniqueImports  map[string]struct{}
	uniqueServices map[string]struct{}

	aliasesByIP    map[string][]uint64    // canonical ip -> alias ids, in discovery order
	recordsByAlias map[uint64][]types.Row // alias id -> dependent rows, insertion order

	work map[types.TableType]map[types.AddressFamily]*workqueue.WorkQueue

	nextID      map[types.TableType]uint64
	nextGroupID uint64
	nextStatID  uint64

	clock workqueue.Clock
}

// New creates an empty MemoryStore. clock overrides the wall clock used
// by its WorkQueues; pass nil in production.
func New(clock workqueue.Clock) *MemoryStore {
	ms := &MemoryStore{
		aliases:  make(map[uint64]*types.Alias),
		imports:  make(map[uint64]*types.Import),
		services: make(map[uint64]*types.Service),
		statuses: make(map[uint64]*types.Status),
		groups:   make(map[uint64]*types.Group),

		uniqueAliases:  make(map[string]uint64),
		uniqueImports:  make(map[string]struct{}),
		uniqueServices: make(map[string]struct{}),

		aliasesByIP:    make(map[string][]uint64),
		recordsByAlias: make(map[uint64][]types.Row),

		work: make(map[types.TableType]map[types.AddressFamily]*workqueue.WorkQueue),

		nextID: make(map[types.TableType]uint64),
		clock:  clock,
	}
	for _, tt := range types.TableTypes {
		ms.work[tt] = make(map[types.AddressFamily]*workqueue.WorkQueue)
		for _, af := range types.ValidAFs {
			ms.work[tt][af] = workqueue.New(clock)
		}
	}
	return ms
}

// --- id allocation -----------------------------------------------------

// nextRowID returns table.next_id and advances it. Ids are allocated
// monotonically as max-seen+1 and survive snapshot/restore (spec.md §3
// invariant 8).
func (ms *MemoryStore) nextRowID(tt types.TableType) uint64 {
	ms.nextID[tt]++
	return ms.nextID[tt]
}

// BumpNextID raises the next-id watermark for tt so it exceeds id, used
// by restore to re-derive watermarks from persisted rows.
func (ms *MemoryStore) BumpNextID(tt types.TableType, id uint64) {
	if ms.nextID[tt] < id {
		ms.nextID[tt] = id
	}
}

// BumpNextGroupID raises the group id watermark.
func (ms *MemoryStore) BumpNextGroupID(id uint64) {
	if ms.nextGroupID < id {
		ms.nextGroupID = id
	}
}

// BumpNextStatusID raises the status id watermark.
func (ms *MemoryStore) BumpNextStatusID(id uint64) {
	if ms.nextStatID < id {
		ms.nextStatID = id
	}
}

func (ms *MemoryStore) nextGroup() uint64 {
	ms.nextGroupID++
	return ms.nextGroupID
}

func (ms *MemoryStore) nextStatus() uint64 {
	ms.nextStatID++
	return ms.nextStatID
}

// --- canonicalization ---------------------------------------------------

func locator(ip string, fqn *string) string {
	if ip != "" {
		return canonicalIP(ip)
	}
	if fqn != nil {
		return strings.ToLower(*fqn)
	}
	return ""
}

func aliasKey(af types.AddressFamily, fqn string) string {
	return fmt.Sprintf("%s|%s", af, strings.ToLower(fqn))
}

func importKey(importType types.ServiceType, af types.AddressFamily, ip string, fqn *string, port int) string {
	return fmt.Sprintf("%s|%s|%s|%d", importType, af, locator(ip, fqn), port)
}

func serviceKey(af types.AddressFamily, proto types.Protocol, st types.ServiceType, ip string, port int) string {
	return fmt.Sprintf("%s|%s|%s|%s|%d", af, proto, st, canonicalIP(ip), port)
}

// --- lookups -------------------------------------------------------------

func (ms *MemoryStore) GetAlias(id uint64) (*types.Alias, bool) {
	a, ok := ms.aliases[id]
	return a, ok
}

func (ms *MemoryStore) GetImport(id uint64) (*types.Import, bool) {
	i, ok := ms.imports[id]
	return i, ok
}

func (ms *MemoryStore) GetService(id uint64) (*types.Service, bool) {
	s, ok := ms.services[id]
	return s, ok
}

func (ms *MemoryStore) GetStatus(id uint64) (*types.Status, bool) {
	s, ok := ms.statuses[id]
	return s, ok
}

func (ms *MemoryStore) GetGroup(id uint64) (*types.Group, bool) {
	g, ok := ms.groups[id]
	return g, ok
}

// Row resolves a (table_type, row_id) pair to its Row, used wherever a
// Status points back at its owning record (spec.md §3 invariant 2).
func (ms *MemoryStore) Row(tt types.TableType, id uint64) (types.Row, bool) {
	switch tt {
	case types.TableAliases:
		a, ok := ms.aliases[id]
		if !ok {
			return nil, false
		}
		return a, true
	case types.TableImports:
		i, ok := ms.imports[id]
		if !ok {
			return nil, false
		}
		return i, true
	case types.TableServices:
		s, ok := ms.services[id]
		if !ok {
			return nil, false
		}
		return s, true
	}
	return nil, false
}

// WorkQueue returns the WorkQueue backing (tt, af).
func (ms *MemoryStore) WorkQueue(tt types.TableType, af types.AddressFamily) *workqueue.WorkQueue {
	return ms.work[tt][af]
}

// AllServices returns every service row, for the catalogue builder.
func (ms *MemoryStore) AllServices() map[uint64]*types.Service {
	return ms.services
}

// AllGroups returns every group, for the catalogue builder and restore.
func (ms *MemoryStore) AllGroups() map[uint64]*types.Group {
	return ms.groups
}

// AllAliases returns every alias row, for snapshot export.
func (ms *MemoryStore) AllAliases() map[uint64]*types.Alias {
	return ms.aliases
}

// AllImports returns every import row, for snapshot export.
func (ms *MemoryStore) AllImports() map[uint64]*types.Import {
	return ms.imports
}

// AllStatuses returns every status row, for snapshot export.
func (ms *MemoryStore) AllStatuses() map[uint64]*types.Status {
	return ms.statuses
}

// AliasesByIP returns the alias ids currently resolving to ip, in the
// order they were discovered, used by the catalogue builder to compute
// each service's fqns field (spec.md §4.5 step 2: "reverse insertion
// order of discovery").
func (ms *MemoryStore) AliasesByIP(ip string) []uint64 {
	return ms.aliasesByIP[canonicalIP(ip)]
}

// RecordsByAlias returns the rows depending on aliasID, in insertion
// order (spec.md §3 invariant 3).
func (ms *MemoryStore) RecordsByAlias(aliasID uint64) []types.Row {
	return ms.recordsByAlias[aliasID]
}
