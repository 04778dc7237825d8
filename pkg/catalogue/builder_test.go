package catalogue

import (
	"math"
	"testing"

	"github.com/cuemby/netwatch/pkg/store"
	"github.com/cuemby/netwatch/pkg/types"
)

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestScoreMatchesWorkedExamples(t *testing.T) {
	hot := score(&types.Status{TestNo: 100, FailedTests: 0, Uptime: 86400, MaxUptime: 86400})
	if !approxEqual(hot, 0.865, 0.001) {
		t.Fatalf("score = %v, want ~0.865", hot)
	}

	cold := score(&types.Status{TestNo: 1, FailedTests: 0, Uptime: 60, MaxUptime: 60})
	if !approxEqual(cold, 0.0198, 0.001) {
		t.Fatalf("score = %v, want ~0.0198", cold)
	}
}

func TestScoreMonotonicInFailures(t *testing.T) {
	base := &types.Status{TestNo: 50, FailedTests: 5, Uptime: 1000, MaxUptime: 2000}
	worse := &types.Status{TestNo: 50, FailedTests: 10, Uptime: 1000, MaxUptime: 2000}

	if score(worse) > score(base) {
		t.Fatalf("increasing failed_tests must never increase score: base=%v worse=%v", score(base), score(worse))
	}
}

func TestScoreClampedToUnitInterval(t *testing.T) {
	s := score(&types.Status{TestNo: 1000000, FailedTests: 0, Uptime: 1000000, MaxUptime: 1000000})
	if s < 0 || s > 1 {
		t.Fatalf("score out of [0,1]: %v", s)
	}
}

func TestScoreZeroTestsIsZero(t *testing.T) {
	s := score(&types.Status{TestNo: 0, FailedTests: 0, Uptime: 0, MaxUptime: 0})
	if s != 0 {
		t.Fatalf("score with no tests yet = %v, want 0", s)
	}
}

func TestBuildAttachesGroupMeanScore(t *testing.T) {
	ms := store.New(nil)
	svc, err := ms.InsertService(types.Service{Type: types.ServiceStunMap, AF: types.AFv4, Proto: types.ProtoUDP, IP: "203.0.113.50", Port: 3478})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st, _ := ms.GetStatus(svc.StatusID)
	st.TestNo = 10
	st.Uptime = 100
	st.MaxUptime = 100

	b := New(ms, nil, 0)
	cat := b.build(1000)

	groups := cat.ByType[types.ServiceStunMap][types.AFv4][types.ProtoUDP]
	if len(groups) != 1 || len(groups[0]) != 1 {
		t.Fatalf("expected one group with one entry, got %+v", groups)
	}
	if groups[0][0].Score != score(st) {
		t.Fatalf("single-row group mean should equal the row's own score: got %v want %v", groups[0][0].Score, score(st))
	}
}

func TestBuildPrepopulatesEveryBucketEvenWhenEmpty(t *testing.T) {
	ms := store.New(nil)
	b := New(ms, nil, 0)
	cat := b.build(1000)

	for _, stype := range types.ServiceTypes {
		for _, af := range types.ValidAFs {
			if _, ok := cat.ByType[stype][af][types.ProtoUDP]; !ok {
				t.Fatalf("missing prepopulated bucket for %s/%s/udp", stype, af)
			}
		}
	}
}

func TestBuildSortsGroupsByScoreDescending(t *testing.T) {
	ms := store.New(nil)
	weak, err := ms.InsertService(types.Service{Type: types.ServiceNTP, AF: types.AFv4, Proto: types.ProtoUDP, IP: "203.0.113.60", Port: 123})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	strong, err := ms.InsertService(types.Service{Type: types.ServiceNTP, AF: types.AFv4, Proto: types.ProtoUDP, IP: "203.0.113.61", Port: 123})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	weakStatus, _ := ms.GetStatus(weak.StatusID)
	weakStatus.TestNo, weakStatus.Uptime, weakStatus.MaxUptime = 5, 10, 100

	strongStatus, _ := ms.GetStatus(strong.StatusID)
	strongStatus.TestNo, strongStatus.Uptime, strongStatus.MaxUptime = 100, 86400, 86400

	b := New(ms, nil, 0)
	cat := b.build(1000)
	groups := cat.ByType[types.ServiceNTP][types.AFv4][types.ProtoUDP]
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0][0].Score < groups[1][0].Score {
		t.Fatalf("groups not sorted descending by score: %v before %v", groups[0][0].Score, groups[1][0].Score)
	}
}
