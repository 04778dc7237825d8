package store

import (
	"fmt"

	"github.com/cuemby/netwatch/pkg/types"
)

// newStatus allocates a fresh Status row for (tt, rowID), starting in the
// init state with zeroed counters (spec.md §3: every imports/services/
// aliases row owns exactly one Status from the moment it is inserted).
func (ms *MemoryStore) newStatus(tt types.TableType, rowID uint64) *types.Status {
	st := &types.Status{
		ID:        ms.nextStatus(),
		TableType: tt,
		RowID:     rowID,
		Status:    types.StatusInit,
	}
	ms.statuses[st.ID] = st
	return st
}

// InsertAlias creates a new alias row for (af, fqn). Unlike the other two
// tables, this is idempotent: if (af, fqn) already exists it returns the
// existing row rather than failing, since InsertImport calls it on the
// caller's behalf to ensure an import's fqn has a backing alias
// (spec.md §4.3). The alias starts with no resolved IP, its own
// single-row group, and an init Status; it is not queued for scheduling
// until AddWork is called for its group.
func (ms *MemoryStore) InsertAlias(af types.AddressFamily, fqn string) (*types.Alias, error) {
	key := aliasKey(af, fqn)
	if id, exists := ms.uniqueAliases[key]; exists {
		return ms.aliases[id], nil
	}

	id := ms.nextRowID(types.TableAliases)
	groupID := ms.nextGroup()
	st := ms.newStatus(types.TableAliases, id)

	a := &types.Alias{ID: id, AF: af, FQN: fqn, GroupID: groupID}
	ms.aliases[id] = a
	ms.uniqueAliases[key] = id
	ms.groups[groupID] = &types.Group{ID: groupID, TableType: types.TableAliases, AF: af, StatusID: st.ID, RowIDs: []uint64{id}}
	return a, nil
}

// InsertImport creates a new import row, or returns ErrDuplicateRecord if
// its (import_type, af, locator, port) tuple is already present. A
// non-zero GroupID joins that existing group; a zero GroupID here gets
// its own single-row group.
func (ms *MemoryStore) InsertImport(imp types.Import) (*types.Import, error) {
	key := importKey(imp.ImportType, imp.AF, imp.IP, imp.FQN, imp.Port)
	if _, exists := ms.uniqueImports[key]; exists {
		return nil, fmt.Errorf("%w: import %s/%s already exists", ErrDuplicateRecord, imp.ImportType, key)
	}

	if imp.FQN != nil && imp.AliasID == nil {
		alias, err := ms.InsertAlias(imp.AF, *imp.FQN)
		if err != nil {
			return nil, err
		}
		imp.AliasID = &alias.ID
	}

	id := ms.nextRowID(types.TableImports)
	imp.ID = id
	if imp.GroupID == 0 {
		imp.GroupID = ms.nextGroup()
	}
	st := ms.newStatus(types.TableImports, id)
	imp.StatusID = st.ID

	row := imp
	ms.imports[id] = &row
	ms.uniqueImports[key] = struct{}{}

	if g, ok := ms.groups[imp.GroupID]; ok {
		g.RowIDs = append(g.RowIDs, id)
	} else {
		ms.groups[imp.GroupID] = &types.Group{ID: imp.GroupID, TableType: types.TableImports, AF: imp.AF, StatusID: st.ID, RowIDs: []uint64{id}}
	}

	if imp.AliasID != nil {
		ms.recordsByAlias[*imp.AliasID] = append(ms.recordsByAlias[*imp.AliasID], ms.imports[id])
	}
	return ms.imports[id], nil
}

// InsertService promotes a row to the services table, or returns
// ErrDuplicateRecord if its (af, proto, type, ip, port) tuple already
// exists (spec.md §3 invariant 1).
func (ms *MemoryStore) InsertService(svc types.Service) (*types.Service, error) {
	key := serviceKey(svc.AF, svc.Proto, svc.Type, svc.IP, svc.Port)
	if _, exists := ms.uniqueServices[key]; exists {
		return nil, fmt.Errorf("%w: service %s already exists", ErrDuplicateRecord, key)
	}

	id := ms.nextRowID(types.TableServices)
	svc.ID = id
	if svc.GroupID == 0 {
		svc.GroupID = ms.nextGroup()
	}
	st := ms.newStatus(types.TableServices, id)
	svc.StatusID = st.ID

	row := svc
	ms.services[id] = &row
	ms.uniqueServices[key] = struct{}{}

	if g, ok := ms.groups[svc.GroupID]; ok {
		g.RowIDs = append(g.RowIDs, id)
	} else {
		ms.groups[svc.GroupID] = &types.Group{ID: svc.GroupID, TableType: types.TableServices, AF: svc.AF, StatusID: st.ID, RowIDs: []uint64{id}}
	}

	if svc.AliasID != nil {
		ms.recordsByAlias[*svc.AliasID] = append(ms.recordsByAlias[*svc.AliasID], ms.services[id])
	}
	return ms.services[id], nil
}

// AddWork registers a freshly inserted group in the WorkQueue for
// (tt, af), under sk (normally types.StatusInit).
func (ms *MemoryStore) AddWork(tt types.TableType, af types.AddressFamily, groupID uint64, rowIDs []uint64, sk types.StatusKind) error {
	return ms.work[tt][af].Add(groupID, rowIDs, sk)
}

// AddAliasByIP registers aliasID under canonicalIP(ip) in the reverse
// index (spec.md §3 invariant 4: aliases_by_ip stays in sync with every
// alias's current ip). A repeat registration is a no-op.
func (ms *MemoryStore) AddAliasByIP(aliasID uint64, ip string) {
	key := canonicalIP(ip)
	if key == "" {
		return
	}
	for _, id := range ms.aliasesByIP[key] {
		if id == aliasID {
			return
		}
	}
	ms.aliasesByIP[key] = append(ms.aliasesByIP[key], aliasID)
}

// DelAliasByIP removes aliasID from the reverse index entry for ip, the
// inverse of AddAliasByIP. Called when an alias's IP changes away from
// its previous value (spec.md §4.4.4).
func (ms *MemoryStore) DelAliasByIP(aliasID uint64, ip string) {
	key := canonicalIP(ip)
	ids, ok := ms.aliasesByIP[key]
	if !ok {
		return
	}
	for i, id := range ids {
		if id == aliasID {
			ids = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(ms.aliasesByIP, key)
	} else {
		ms.aliasesByIP[key] = ids
	}
}

// SetAliasIP overwrites aliasID's own current IP and keeps aliases_by_ip
// in sync (spec.md §3 invariant 4). It does not touch any dependent row;
// Scheduler.UpdateAlias decides, per row, whether the cascade rule of
// §4.4.4 applies before calling row.SetRowIP itself.
func (ms *MemoryStore) SetAliasIP(aliasID uint64, newIP string) error {
	a, ok := ms.aliases[aliasID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownAlias, aliasID)
	}

	if a.IP != "" {
		ms.DelAliasByIP(aliasID, a.IP)
	}
	a.IP = newIP
	ms.AddAliasByIP(aliasID, newIP)
	return nil
}

// DisableImport moves an import's group to the disabled sublist and
// marks its Status disabled, without deleting the row (spec.md §4.4.2:
// imports are retired, never dropped, once they succeed or use up their
// test attempts).
func (ms *MemoryStore) DisableImport(importID uint64) error {
	imp, ok := ms.imports[importID]
	if !ok {
		return fmt.Errorf("%w: import %d", ErrUnknownStatus, importID)
	}
	st, ok := ms.statuses[imp.StatusID]
	if !ok {
		return fmt.Errorf("%w: status %d", ErrUnknownStatus, imp.StatusID)
	}
	st.Status = types.StatusDisabled
	return ms.work[types.TableImports][imp.AF].Move(imp.GroupID, types.StatusDisabled)
}
