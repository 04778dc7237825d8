package storage

import (
	"path/filepath"
	"testing"

	"github.com/cuemby/netwatch/pkg/store"
	"github.com/cuemby/netwatch/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *BoltStore {
	t.Helper()
	db, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSettingRoundTrip(t *testing.T) {
	db := openTestStore(t)

	_, found, err := db.Setting("seed_checksum")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, db.SetSetting("seed_checksum", "abc123"))
	value, found, err := db.Setting("seed_checksum")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "abc123", value)
}

func TestSnapshotThenRestoreRoundTrips(t *testing.T) {
	db := openTestStore(t)

	ms := store.New(nil)
	alias, err := ms.InsertAlias(types.AFv4, "stun.example.com")
	require.NoError(t, err)
	require.NoError(t, ms.SetAliasIP(alias.ID, "203.0.113.9"))

	imp, err := ms.InsertImport(types.Import{ImportType: types.ServiceNTP, AF: types.AFv4, IP: "203.0.113.10", Port: 123})
	require.NoError(t, err)

	svc, err := ms.InsertService(types.Service{
		Type: types.ServiceTURN, AF: types.AFv4, Proto: types.ProtoUDP,
		IP: "203.0.113.11", Port: 3478, AliasID: &alias.ID,
	})
	require.NoError(t, err)

	require.NoError(t, db.Snapshot(ms))

	restored := store.New(nil)
	require.NoError(t, db.Restore(restored))

	gotAlias, ok := restored.GetAlias(alias.ID)
	require.True(t, ok)
	assert.Equal(t, "203.0.113.9", gotAlias.IP)

	gotImport, ok := restored.GetImport(imp.ID)
	require.True(t, ok)
	assert.Equal(t, imp.IP, gotImport.IP)

	gotService, ok := restored.GetService(svc.ID)
	require.True(t, ok)
	assert.Equal(t, svc.Port, gotService.Port)

	// every restored group must land in init regardless of the status it
	// was snapshotted with (spec.md §4.6).
	for _, tt := range []types.TableType{types.TableAliases, types.TableImports, types.TableServices} {
		for _, g := range restored.AllGroups() {
			if g.TableType != tt {
				continue
			}
			wq := restored.WorkQueue(tt, g.AF)
			sk, tracked := wq.StatusOf(g.ID)
			require.True(t, tracked)
			assert.Equal(t, types.StatusInit, sk)
		}
	}

	// next-id watermarks must be past every restored row so a fresh
	// insert can never collide with a restored one.
	newAlias, err := restored.InsertAlias(types.AFv4, "fresh.example.com")
	require.NoError(t, err)
	assert.Greater(t, newAlias.ID, alias.ID)
}

func TestSnapshotOverwritesPreviousContents(t *testing.T) {
	db := openTestStore(t)

	first := store.New(nil)
	_, err := first.InsertImport(types.Import{ImportType: types.ServiceStunMap, AF: types.AFv4, IP: "203.0.113.20", Port: 3478})
	require.NoError(t, err)
	require.NoError(t, db.Snapshot(first))

	second := store.New(nil)
	require.NoError(t, db.Snapshot(second))

	restored := store.New(nil)
	require.NoError(t, db.Restore(restored))
	assert.Empty(t, restored.AllImports())
}

func TestRestoreOnEmptyDatabaseIsNoop(t *testing.T) {
	db := openTestStore(t)
	ms := store.New(nil)
	require.NoError(t, db.Restore(ms))
	assert.Empty(t, ms.AllAliases())
	assert.Empty(t, ms.AllImports())
	assert.Empty(t, ms.AllServices())
}

func TestNewBoltStoreCreatesDBFile(t *testing.T) {
	dir := t.TempDir()
	db, err := NewBoltStore(dir)
	require.NoError(t, err)
	defer db.Close()

	assert.FileExists(t, filepath.Join(dir, "netwatch.db"))
}
