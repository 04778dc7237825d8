package store

import (
	"errors"
	"testing"

	"github.com/cuemby/netwatch/pkg/types"
)

func fixedClock(t int64) func() int64 {
	return func() int64 { return t }
}

func TestInsertAliasIsIdempotent(t *testing.T) {
	ms := New(fixedClock(0))
	first, err := ms.InsertAlias(types.AFv4, "stun.example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := ms.InsertAlias(types.AFv4, "STUN.example.com")
	if err != nil {
		t.Fatalf("unexpected error on repeat insert: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected idempotent insert to return the existing row %d, got %d", first.ID, second.ID)
	}
}

func TestInsertAliasDifferentAFAllowed(t *testing.T) {
	ms := New(fixedClock(0))
	if _, err := ms.InsertAlias(types.AFv4, "stun.example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ms.InsertAlias(types.AFv6, "stun.example.com"); err != nil {
		t.Fatalf("unexpected error inserting same fqn under a different af: %v", err)
	}
}

func TestInsertImportDuplicateFails(t *testing.T) {
	ms := New(fixedClock(0))
	imp := types.Import{ImportType: types.ServiceStunMap, AF: types.AFv4, IP: "203.0.113.9", Port: 3478}
	if _, err := ms.InsertImport(imp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ms.InsertImport(imp); !errors.Is(err, ErrDuplicateRecord) {
		t.Fatalf("expected ErrDuplicateRecord, got %v", err)
	}
}

func TestInsertImportAssignsStatusAndGroup(t *testing.T) {
	ms := New(fixedClock(0))
	got, err := ms.InsertImport(types.Import{ImportType: types.ServiceNTP, AF: types.AFv4, IP: "203.0.113.10", Port: 123})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.StatusID == 0 {
		t.Fatal("expected non-zero status id")
	}
	st, ok := ms.GetStatus(got.StatusID)
	if !ok || st.Status != types.StatusInit {
		t.Fatalf("expected fresh status in init, got %+v, ok=%v", st, ok)
	}
	g, ok := ms.GetGroup(got.GroupID)
	if !ok || len(g.RowIDs) != 1 || g.RowIDs[0] != got.ID {
		t.Fatalf("expected single-row group containing %d, got %+v", got.ID, g)
	}
}

func TestInsertServiceDuplicateFails(t *testing.T) {
	ms := New(fixedClock(0))
	svc := types.Service{Type: types.ServiceMQTT, AF: types.AFv4, Proto: types.ProtoTCP, IP: "203.0.113.11", Port: 1883}
	if _, err := ms.InsertService(svc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ms.InsertService(svc); !errors.Is(err, ErrDuplicateRecord) {
		t.Fatalf("expected ErrDuplicateRecord, got %v", err)
	}
}

func TestSetAliasIPUpdatesReverseIndexOnly(t *testing.T) {
	ms := New(fixedClock(0))
	alias, err := ms.InsertAlias(types.AFv4, "turn.example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ms.SetAliasIP(alias.ID, "203.0.113.20"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	svc, err := ms.InsertService(types.Service{
		Type: types.ServiceTURN, AF: types.AFv4, Proto: types.ProtoUDP,
		IP: "203.0.113.20", Port: 3478, AliasID: &alias.ID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := ms.SetAliasIP(alias.ID, "203.0.113.21"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// SetAliasIP only ever touches the alias row itself; cascading to
	// dependent rows is scheduler.UpdateAlias's conditional responsibility
	// (spec.md §4.4.4), not store's.
	updated, _ := ms.GetService(svc.ID)
	if updated.IP != "203.0.113.20" {
		t.Fatalf("SetAliasIP must not touch dependent rows, got %q", updated.IP)
	}
	gotAlias, _ := ms.GetAlias(alias.ID)
	if gotAlias.IP != "203.0.113.21" {
		t.Fatalf("alias IP = %q, want 203.0.113.21", gotAlias.IP)
	}

	ids := ms.AliasesByIP("203.0.113.21")
	if len(ids) != 1 || ids[0] != alias.ID {
		t.Fatalf("AliasesByIP did not follow the new IP: %v", ids)
	}
	if ids := ms.AliasesByIP("203.0.113.20"); len(ids) != 0 {
		t.Fatalf("stale reverse-index entry left behind: %v", ids)
	}
}

func TestSetAliasIPUnknownAlias(t *testing.T) {
	ms := New(fixedClock(0))
	if err := ms.SetAliasIP(999, "203.0.113.1"); !errors.Is(err, ErrUnknownAlias) {
		t.Fatalf("expected ErrUnknownAlias, got %v", err)
	}
}

func TestAddWorkAndDisableImport(t *testing.T) {
	ms := New(fixedClock(0))
	imp, err := ms.InsertImport(types.Import{ImportType: types.ServiceStunMap, AF: types.AFv4, IP: "203.0.113.30", Port: 3478})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ms.AddWork(types.TableImports, types.AFv4, imp.GroupID, []uint64{imp.ID}, types.StatusInit); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wq := ms.WorkQueue(types.TableImports, types.AFv4)
	if !wq.Contains(imp.GroupID) {
		t.Fatal("expected group to be tracked after AddWork")
	}

	if err := ms.DisableImport(imp.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st, _ := ms.GetStatus(imp.StatusID)
	if st.Status != types.StatusDisabled {
		t.Fatalf("expected disabled status, got %v", st.Status)
	}
	sk, _ := wq.StatusOf(imp.GroupID)
	if sk != types.StatusDisabled {
		t.Fatalf("expected group moved to disabled sublist, got %v", sk)
	}
}
