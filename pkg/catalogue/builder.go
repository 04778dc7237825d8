/*
Package catalogue implements the periodic rebuild of the dealer's public,
ranked, pre-rendered server listing served verbatim by GET /servers. The
shape and scoring rule are described in spec.md §4.5; the periodic-rebuild
skeleton here is grounded on warren's reconciler loop (ticker, timer
metric, serialized single-flight run).
*/
package catalogue

import (
	"encoding/json"
	"math"
	"sync"
	"time"

	"github.com/cuemby/netwatch/pkg/log"
	"github.com/cuemby/netwatch/pkg/metrics"
	"github.com/cuemby/netwatch/pkg/store"
	"github.com/cuemby/netwatch/pkg/types"
	"github.com/rs/zerolog"
)

// Snapshotter durably persists the current catalogue-relevant state once
// a rebuild completes, satisfied by storage.Store.
type Snapshotter interface {
	Snapshot(ms *store.MemoryStore) error
}

// Builder owns the periodic rebuild of the cached catalogue string.
// Rebuilds never run concurrently with themselves (spec.md §4.5, "never
// concurrently with itself").
type Builder struct {
	store    *store.MemoryStore
	durable  Snapshotter
	logger   zerolog.Logger
	interval time.Duration

	mu     sync.RWMutex
	cached string
	stopCh chan struct{}
}

// New creates a Builder over ms, persisting through durable on every
// rebuild. interval defaults to types.CatalogueRefreshInterval if zero.
func New(ms *store.MemoryStore, durable Snapshotter, interval time.Duration) *Builder {
	if interval <= 0 {
		interval = types.CatalogueRefreshInterval
	}
	return &Builder{
		store:    ms,
		durable:  durable,
		logger:   log.WithComponent("catalogue"),
		interval: interval,
		cached:   "{}",
		stopCh:   make(chan struct{}),
	}
}

// Start begins the rebuild loop in a goroutine.
func (b *Builder) Start() {
	go b.run()
}

// Stop halts the rebuild loop.
func (b *Builder) Stop() {
	close(b.stopCh)
}

func (b *Builder) run() {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := b.Rebuild(); err != nil {
				b.logger.Error().Err(err).Msg("catalogue rebuild failed")
			}
		case <-b.stopCh:
			return
		}
	}
}

// Cached returns the most recently rendered catalogue JSON string,
// served as-is by GET /servers.
func (b *Builder) Cached() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cached
}

// Rebuild performs one synchronous rebuild-and-snapshot cycle (spec.md
// §4.5 steps 1-7). The rebuild itself is CPU-only and non-suspending;
// the snapshot that follows is the one I/O suspension point this loop
// crosses (spec.md §5, "Suspension points").
func (b *Builder) Rebuild() error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.CatalogueBuildDuration)

	cat := b.build(time.Now().Unix())
	rendered, err := renderPretty(cat)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.cached = rendered
	b.mu.Unlock()

	count := 0
	for _, byAF := range cat.ByType {
		for _, byProto := range byAF {
			for _, groups := range byProto {
				for _, group := range groups {
					count += len(group)
				}
			}
		}
	}
	metrics.CatalogueEntriesTotal.Set(float64(count))

	if b.durable != nil {
		if err := b.durable.Snapshot(b.store); err != nil {
			b.logger.Error().Err(err).Msg("post-rebuild snapshot failed")
			return err
		}
	}
	return nil
}

// build implements spec.md §4.5 steps 1-5 in memory, without touching
// the cache or durable store.
func (b *Builder) build(now int64) *types.Catalogue {
	cat := &types.Catalogue{
		ByType:    make(map[types.ServiceType]map[types.AddressFamily]map[types.Protocol][][]*types.CatalogueEntry),
		Timestamp: now,
	}
	for _, st := range types.ServiceTypes {
		cat.ByType[st] = make(map[types.AddressFamily]map[types.Protocol][][]*types.CatalogueEntry)
		for _, af := range types.ValidAFs {
			cat.ByType[st][af] = make(map[types.Protocol][][]*types.CatalogueEntry)
			for _, proto := range []types.Protocol{types.ProtoUDP, types.ProtoTCP} {
				cat.ByType[st][af][proto] = nil
			}
		}
	}

	groupedRows := make(map[uint64][]*types.CatalogueEntry)
	groupMeta := make(map[uint64]*types.Service)
	for _, svc := range b.store.AllServices() {
		st, ok := b.statusFor(svc)
		if !ok {
			continue
		}
		entry := &types.CatalogueEntry{
			ID: svc.ID, Type: svc.Type, AF: svc.AF, Proto: svc.Proto,
			IP: svc.IP, Port: svc.Port,
			FQNs:        fqnsFor(b.store, svc.IP),
			TestNo:      st.TestNo,
			FailedTests: st.FailedTests,
			Uptime:      st.Uptime,
			MaxUptime:   st.MaxUptime,
			LastSuccess: st.LastSuccess,
			Score:       score(st),
		}
		groupedRows[svc.GroupID] = append(groupedRows[svc.GroupID], entry)
		if _, ok := groupMeta[svc.GroupID]; !ok {
			groupMeta[svc.GroupID] = svc
		}
	}

	for groupID, entries := range groupedRows {
		meta := groupMeta[groupID]
		mean := meanScore(entries)
		for _, e := range entries {
			e.Score = mean
		}
		cat.ByType[meta.Type][meta.AF][meta.Proto] = append(cat.ByType[meta.Type][meta.AF][meta.Proto], entries)
	}

	for st, byAF := range cat.ByType {
		for af, byProto := range byAF {
			for proto, groups := range byProto {
				sortGroupsByScore(groups)
				cat.ByType[st][af][proto] = groups
			}
		}
	}
	return cat
}

func (b *Builder) statusFor(svc *types.Service) (*types.Status, bool) {
	return b.store.GetStatus(svc.StatusID)
}

// fqnsFor returns the FQNs of every alias whose current ip equals ip, in
// reverse insertion order of discovery (spec.md §4.5 step 2).
func fqnsFor(ms *store.MemoryStore, ip string) []string {
	ids := ms.AliasesByIP(ip)
	if len(ids) == 0 {
		return nil
	}
	fqns := make([]string, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		if a, ok := ms.GetAlias(ids[i]); ok {
			fqns = append(fqns, a.FQN)
		}
	}
	return fqns
}

// score implements the deterministic scoring function of spec.md §4.5.
func score(st *types.Status) float64 {
	failedTests := math.Max(float64(st.FailedTests), 0)
	testNo := math.Max(float64(st.TestNo), 0)
	uptime := math.Max(float64(st.Uptime), 0)
	maxUptime := math.Max(float64(st.MaxUptime), 0)

	uptimeRatio := 0.0
	if maxUptime > 0 {
		uptimeRatio = math.Min(1, math.Max(0, uptime/maxUptime))
	}
	testFactor := 1 - failedTests/(testNo+1e-9)
	smoothing := 1 - math.Exp(-testNo/50)

	raw := testFactor * (0.5*uptimeRatio + 0.5) * smoothing
	return math.Min(1, math.Max(0, raw))
}

func meanScore(entries []*types.CatalogueEntry) float64 {
	if len(entries) == 0 {
		return 0
	}
	sum := 0.0
	for _, e := range entries {
		sum += e.Score
	}
	return sum / float64(len(entries))
}

// sortGroupsByScore orders groups by their (now-uniform) first member's
// score, descending, using a plain insertion sort since group counts per
// bucket are small.
func sortGroupsByScore(groups [][]*types.CatalogueEntry) {
	for i := 1; i < len(groups); i++ {
		for j := i; j > 0 && groupScore(groups[j]) > groupScore(groups[j-1]); j-- {
			groups[j], groups[j-1] = groups[j-1], groups[j]
		}
	}
}

func groupScore(g []*types.CatalogueEntry) float64 {
	if len(g) == 0 {
		return 0
	}
	return g[0].Score
}

func renderPretty(cat *types.Catalogue) (string, error) {
	b, err := json.MarshalIndent(cat, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
