package scheduler

import (
	"testing"

	"github.com/cuemby/netwatch/pkg/store"
	"github.com/cuemby/netwatch/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler() (*Scheduler, *store.MemoryStore) {
	ms := store.New(nil)
	return New(ms, nil), ms
}

func insertImport(t *testing.T, ms *store.MemoryStore, ip string, port int) *types.Import {
	t.Helper()
	imp, err := ms.InsertImport(types.Import{ImportType: types.ServiceStunMap, AF: types.AFv4, IP: ip, Port: port})
	require.NoError(t, err)
	require.NoError(t, ms.AddWork(types.TableImports, types.AFv4, imp.GroupID, []uint64{imp.ID}, types.StatusInit))
	return imp
}

func TestAllocateIdempotentUnderWorkerTimeout(t *testing.T) {
	sched, ms := newTestScheduler()
	insertImport(t, ms, "203.0.113.1", 3478)

	first, err := sched.Allocate([]types.AddressFamily{types.AFv4}, nil, 1000, types.MonitorFrequencySeconds)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := sched.Allocate([]types.AddressFamily{types.AFv4}, nil, 1000+100, types.MonitorFrequencySeconds)
	require.NoError(t, err)
	assert.Empty(t, second, "a second /work call inside WORKER_TIMEOUT must not return the same group")
}

func TestAllocateReclaimsAfterWorkerTimeout(t *testing.T) {
	// The work queue stamps each move with its own clock; pin it to the
	// first Allocate's now so the reclaim below is measured from there.
	ms := store.New(func() int64 { return 1000 })
	sched := New(ms, nil)
	imp := insertImport(t, ms, "203.0.113.2", 3478)

	rows, err := sched.Allocate([]types.AddressFamily{types.AFv4}, nil, 1000, types.MonitorFrequencySeconds)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, imp.ID, rows[0].RowID())

	reclaimed, err := sched.Allocate([]types.AddressFamily{types.AFv4}, nil, 1000+types.WorkerTimeoutSeconds+1, types.MonitorFrequencySeconds)
	require.NoError(t, err)
	require.Len(t, reclaimed, 1, "a group abandoned past WORKER_TIMEOUT must be reclaimed")
	assert.Equal(t, imp.ID, reclaimed[0].RowID())
}

func TestAllocateRespectsTableFilter(t *testing.T) {
	sched, ms := newTestScheduler()
	insertImport(t, ms, "203.0.113.3", 3478)

	services := types.TableServices
	rows, err := sched.Allocate([]types.AddressFamily{types.AFv4}, &services, 1000, types.MonitorFrequencySeconds)
	require.NoError(t, err)
	assert.Empty(t, rows, "filtering to services must not surface a pending import")
}

func TestAllocateReturnsEmptyWhenNothingPending(t *testing.T) {
	sched, _ := newTestScheduler()
	rows, err := sched.Allocate([]types.AddressFamily{types.AFv4, types.AFv6}, nil, 1000, types.MonitorFrequencySeconds)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMarkCompleteSuccessAccumulatesUptime(t *testing.T) {
	sched, ms := newTestScheduler()
	imp := insertImport(t, ms, "203.0.113.4", 3478)
	_, err := sched.Allocate([]types.AddressFamily{types.AFv4}, nil, 1000, types.MonitorFrequencySeconds)
	require.NoError(t, err)

	require.NoError(t, sched.MarkComplete(true, imp.StatusID, 1000))
	st, ok := ms.GetStatus(imp.StatusID)
	require.True(t, ok)
	assert.Equal(t, int64(0), st.Uptime, "first success has no prior last_uptime to measure against")
	assert.Equal(t, types.StatusDisabled, st.Status, "a successful import is disabled")

	_, err = sched.Allocate([]types.AddressFamily{types.AFv4}, nil, 1000+types.MonitorFrequencySeconds, types.MonitorFrequencySeconds)
	require.NoError(t, err)
	require.NoError(t, sched.MarkComplete(true, imp.StatusID, 1000+types.MonitorFrequencySeconds))

	st, _ = ms.GetStatus(imp.StatusID)
	assert.Equal(t, int64(types.MonitorFrequencySeconds), st.Uptime)
	assert.Equal(t, int64(types.MonitorFrequencySeconds), st.MaxUptime)
}

func TestMarkCompleteFailureResetsUptimeButKeepsMax(t *testing.T) {
	sched, ms := newTestScheduler()
	imp := insertImport(t, ms, "203.0.113.5", 3478)

	st, _ := ms.GetStatus(imp.StatusID)
	st.Uptime = 500
	st.MaxUptime = 500

	require.NoError(t, sched.MarkComplete(false, imp.StatusID, 2000))
	st, _ = ms.GetStatus(imp.StatusID)
	assert.Equal(t, int64(0), st.Uptime)
	assert.Equal(t, int64(500), st.MaxUptime)
	assert.Equal(t, int64(1), st.FailedTests)
}

func TestMarkCompleteDisablesImportAfterRetriesExhausted(t *testing.T) {
	sched, ms := newTestScheduler()
	imp := insertImport(t, ms, "203.0.113.6", 3478)
	st, _ := ms.GetStatus(imp.StatusID)
	st.TestNo = types.ImportTestNo

	require.NoError(t, sched.MarkComplete(false, imp.StatusID, 3000))
	st, _ = ms.GetStatus(imp.StatusID)
	assert.Equal(t, types.StatusDisabled, st.Status)
}

func TestInsertServicesRejectsBadStunChangeAliasCount(t *testing.T) {
	sched, ms := newTestScheduler()
	imp := insertImport(t, ms, "203.0.113.7", 3478)

	oneAlias := uint64(1)
	group := []types.Service{
		{Type: types.ServiceStunChange, AF: types.AFv4, Proto: types.ProtoUDP, IP: "203.0.113.8", Port: 3478, AliasID: &oneAlias},
		{Type: types.ServiceStunChange, AF: types.AFv4, Proto: types.ProtoUDP, IP: "203.0.113.9", Port: 3478},
	}
	require.NoError(t, sched.InsertServices([][]types.Service{group}, imp.StatusID))

	assert.Empty(t, ms.AllServices(), "a stun-change group with 1 of 4 alias ids set must be rejected")
}

func TestInsertServicesAcceptsValidGroupAndEnqueues(t *testing.T) {
	sched, ms := newTestScheduler()
	imp := insertImport(t, ms, "203.0.113.10", 3478)

	group := []types.Service{
		{Type: types.ServiceStunMap, AF: types.AFv4, Proto: types.ProtoUDP, IP: "203.0.113.11", Port: 3478},
	}
	require.NoError(t, sched.InsertServices([][]types.Service{group}, imp.StatusID))

	assert.Len(t, ms.AllServices(), 1)
	for _, svc := range ms.AllServices() {
		assert.True(t, ms.WorkQueue(types.TableServices, types.AFv4).Contains(svc.GroupID), "the inserted group must be enqueued")
	}
	st, _ := ms.GetStatus(imp.StatusID)
	assert.Equal(t, int64(1), st.TestNo)
}

func TestUpdateAliasRejectsNonPublicIP(t *testing.T) {
	sched, ms := newTestScheduler()
	alias, err := ms.InsertAlias(types.AFv4, "stun.example.com")
	require.NoError(t, err)

	err = sched.UpdateAlias(alias.ID, "10.0.0.5", 1000)
	assert.Error(t, err)
}

func TestUpdateAliasCascadesToFreshImport(t *testing.T) {
	sched, ms := newTestScheduler()
	alias, err := ms.InsertAlias(types.AFv4, "stun.example.com")
	require.NoError(t, err)

	fqn := alias.FQN
	imp, err := ms.InsertImport(types.Import{ImportType: types.ServiceStunMap, AF: types.AFv4, FQN: &fqn, AliasID: &alias.ID, Port: 3478})
	require.NoError(t, err)

	require.NoError(t, sched.UpdateAlias(alias.ID, "203.0.113.12", 1000))

	updated, _ := ms.GetImport(imp.ID)
	assert.Equal(t, "203.0.113.12", updated.IP, "a fresh import (test_no == 0) must take the new IP")
}

func TestUpdateAliasDoesNotCascadeToHealthyService(t *testing.T) {
	sched, ms := newTestScheduler()
	alias, err := ms.InsertAlias(types.AFv4, "turn.example.com")
	require.NoError(t, err)
	require.NoError(t, sched.UpdateAlias(alias.ID, "203.0.113.13", 1000))

	svc, err := ms.InsertService(types.Service{
		Type: types.ServiceTURN, AF: types.AFv4, Proto: types.ProtoUDP,
		IP: "203.0.113.13", Port: 3478, AliasID: &alias.ID,
	})
	require.NoError(t, err)
	st, _ := ms.GetStatus(svc.StatusID)
	st.TestNo = 10
	st.LastSuccess = 999
	st.LastUptime = 999

	require.NoError(t, sched.UpdateAlias(alias.ID, "203.0.113.14", 1000))

	unchanged, _ := ms.GetService(svc.ID)
	assert.Equal(t, "203.0.113.13", unchanged.IP, "a recently-healthy service must not flip to the new IP")
}

func TestUpdateAliasCascadesAfterLongDowntime(t *testing.T) {
	sched, ms := newTestScheduler()
	alias, err := ms.InsertAlias(types.AFv4, "turn2.example.com")
	require.NoError(t, err)
	require.NoError(t, sched.UpdateAlias(alias.ID, "203.0.113.15", 0))

	svc, err := ms.InsertService(types.Service{
		Type: types.ServiceTURN, AF: types.AFv4, Proto: types.ProtoUDP,
		IP: "203.0.113.15", Port: 3478, AliasID: &alias.ID,
	})
	require.NoError(t, err)
	st, _ := ms.GetStatus(svc.StatusID)
	st.TestNo = 10
	st.LastSuccess = 100
	st.LastUptime = 100

	now := int64(100 + 2*types.MaxServerDowntimeSeconds + 1)
	require.NoError(t, sched.UpdateAlias(alias.ID, "203.0.113.16", now))

	updated, _ := ms.GetService(svc.ID)
	assert.Equal(t, "203.0.113.16", updated.IP)
}
