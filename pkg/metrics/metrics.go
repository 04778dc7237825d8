package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Table metrics
	RowsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "netwatch_rows_total",
			Help: "Total number of rows by table and address family",
		},
		[]string{"table", "af"},
	)

	GroupsByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "netwatch_groups_by_status",
			Help: "Number of scheduling groups by table, af, and status",
		},
		[]string{"table", "af", "status"},
	)

	// Scheduling metrics
	AllocationLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "netwatch_allocation_latency_seconds",
			Help:    "Time taken to serve an allocation request",
			Buckets: prometheus.DefBuckets,
		},
	)

	AllocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netwatch_allocations_total",
			Help: "Total number of work allocations by table and outcome",
		},
		[]string{"table", "outcome"},
	)

	CompletionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netwatch_completions_total",
			Help: "Total number of reported test completions by result",
		},
		[]string{"result"},
	)

	DuplicateRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netwatch_duplicate_records_total",
			Help: "Total number of insert attempts rejected as duplicates, by table",
		},
		[]string{"table"},
	)

	AliasCascadesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "netwatch_alias_cascades_total",
			Help: "Total number of alias IP updates propagated to dependent rows",
		},
	)

	// Catalogue metrics
	CatalogueBuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "netwatch_catalogue_build_duration_seconds",
			Help:    "Time taken to rebuild the public catalogue",
			Buckets: prometheus.DefBuckets,
		},
	)

	CatalogueEntriesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "netwatch_catalogue_entries_total",
			Help: "Number of entries in the most recently built catalogue",
		},
	)

	// Durable storage metrics
	SnapshotDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "netwatch_snapshot_duration_seconds",
			Help:    "Time taken to write a durable snapshot",
			Buckets: prometheus.DefBuckets,
		},
	)

	SnapshotFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "netwatch_snapshot_failures_total",
			Help: "Total number of fatal snapshot write failures",
		},
	)

	RestoreSkippedRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netwatch_restore_skipped_rows_total",
			Help: "Total number of rows skipped during restore due to integrity errors, by table",
		},
		[]string{"table"},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netwatch_api_requests_total",
			Help: "Total number of API requests by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "netwatch_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIRejectedOriginTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netwatch_api_rejected_origin_total",
			Help: "Total number of mutating requests rejected for not originating from loopback",
		},
		[]string{"endpoint"},
	)

	// Worker-side metrics (registered, but cmd/worker neither records nor
	// serves them)
	ProbesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netwatch_worker_probes_total",
			Help: "Total number of probes attempted by service type and result",
		},
		[]string{"service_type", "result"},
	)

	ProbeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "netwatch_worker_probe_duration_seconds",
			Help:    "Time taken to probe one endpoint",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service_type"},
	)
)

func init() {
	prometheus.MustRegister(RowsTotal)
	prometheus.MustRegister(GroupsByStatus)
	prometheus.MustRegister(AllocationLatency)
	prometheus.MustRegister(AllocationsTotal)
	prometheus.MustRegister(CompletionsTotal)
	prometheus.MustRegister(DuplicateRecordsTotal)
	prometheus.MustRegister(AliasCascadesTotal)
	prometheus.MustRegister(CatalogueBuildDuration)
	prometheus.MustRegister(CatalogueEntriesTotal)
	prometheus.MustRegister(SnapshotDuration)
	prometheus.MustRegister(SnapshotFailuresTotal)
	prometheus.MustRegister(RestoreSkippedRowsTotal)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
	prometheus.MustRegister(APIRejectedOriginTotal)
	prometheus.MustRegister(ProbesTotal)
	prometheus.MustRegister(ProbeDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
