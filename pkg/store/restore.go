package store

import "github.com/cuemby/netwatch/pkg/types"

// RestoreRows repopulates every table, unique-key index, group, and
// watermark from rows read back by storage.BoltStore.Restore, then
// re-enqueues every group into its WorkQueue's init sublist — spec.md
// §4.6: "on restart every row is due for immediate re-check, since
// nothing was probed while the dealer was down" — regardless of the
// status each row was snapshotted with. Call this once, on an empty
// MemoryStore, before serving any request.
func (ms *MemoryStore) RestoreRows(aliases []*types.Alias, imports []*types.Import, services []*types.Service, statuses map[uint64]*types.Status) {
	for _, st := range statuses {
		ms.statuses[st.ID] = st
		ms.BumpNextStatusID(st.ID)
	}

	statusByRow := make(map[types.TableType]map[uint64]*types.Status, len(types.TableTypes))
	for _, tt := range types.TableTypes {
		statusByRow[tt] = make(map[uint64]*types.Status)
	}
	for _, st := range statuses {
		statusByRow[st.TableType][st.RowID] = st
	}

	ensureGroup := func(groupID uint64, tt types.TableType, af types.AddressFamily, statusID uint64) *types.Group {
		g, ok := ms.groups[groupID]
		if !ok {
			g = &types.Group{ID: groupID, TableType: tt, AF: af, StatusID: statusID}
			ms.groups[groupID] = g
		}
		return g
	}

	for _, a := range aliases {
		ms.aliases[a.ID] = a
		ms.uniqueAliases[aliasKey(a.AF, a.FQN)] = a.ID
		ms.BumpNextID(types.TableAliases, a.ID)
		ms.BumpNextGroupID(a.GroupID)
		if a.IP != "" {
			ms.AddAliasByIP(a.ID, a.IP)
		}
		var statusID uint64
		if st, ok := statusByRow[types.TableAliases][a.ID]; ok {
			statusID = st.ID
		}
		g := ensureGroup(a.GroupID, types.TableAliases, a.AF, statusID)
		g.RowIDs = append(g.RowIDs, a.ID)
	}

	for _, i := range imports {
		ms.imports[i.ID] = i
		ms.uniqueImports[importKey(i.ImportType, i.AF, i.IP, i.FQN, i.Port)] = struct{}{}
		ms.BumpNextID(types.TableImports, i.ID)
		ms.BumpNextGroupID(i.GroupID)
		if i.AliasID != nil {
			ms.recordsByAlias[*i.AliasID] = append(ms.recordsByAlias[*i.AliasID], i)
		}
		g := ensureGroup(i.GroupID, types.TableImports, i.AF, i.StatusID)
		g.RowIDs = append(g.RowIDs, i.ID)
	}

	for _, svc := range services {
		ms.services[svc.ID] = svc
		ms.uniqueServices[serviceKey(svc.AF, svc.Proto, svc.Type, svc.IP, svc.Port)] = struct{}{}
		ms.BumpNextID(types.TableServices, svc.ID)
		ms.BumpNextGroupID(svc.GroupID)
		if svc.AliasID != nil {
			ms.recordsByAlias[*svc.AliasID] = append(ms.recordsByAlias[*svc.AliasID], svc)
		}
		g := ensureGroup(svc.GroupID, types.TableServices, svc.AF, svc.StatusID)
		g.RowIDs = append(g.RowIDs, svc.ID)
	}

	for _, g := range ms.groups {
		if st, ok := ms.statuses[g.StatusID]; ok {
			st.Status = types.StatusInit
		}
		_ = ms.AddWork(g.TableType, g.AF, g.ID, g.RowIDs, types.StatusInit)
	}
}
