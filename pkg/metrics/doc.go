/*
Package metrics provides Prometheus metrics collection and exposition for netwatch.

The metrics package defines and registers all netwatch metrics using the Prometheus
client library, providing observability into the dealer's scheduling, catalogue,
snapshot and HTTP work. Metrics are exposed via HTTP endpoint for scraping by
Prometheus servers.

# Architecture

netwatch's metrics system follows Prometheus best practices with comprehensive
instrumentation across all components:

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                │          │
	│  │  - Global DefaultRegistry                   │          │
	│  │  - MustRegister at package init             │          │
	│  │  - Automatic Go runtime metrics             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │              Metric Types                   │          │
	│  │                                              │          │
	│  │  Gauge: Instant values (catalogue size)     │          │
	│  │  Counter: Monotonic increases (requests)    │          │
	│  │  Histogram: Distributions (latency)         │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Metric Categories                 │          │
	│  │                                              │          │
	│  │  Tables: Rows, groups by status             │          │
	│  │  Scheduling: Allocations, completions       │          │
	│  │  Catalogue: Build duration, entries         │          │
	│  │  Storage: Snapshot duration, failures       │          │
	│  │  API: Request count, duration, rejections   │          │
	│  │  Worker: Probe count, duration              │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          HTTP Metrics Endpoint              │          │
	│  │  - Path: /metrics                           │          │
	│  │  - Format: Prometheus text exposition       │          │
	│  │  - Handler: promhttp.Handler()              │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Prometheus Server                   │          │
	│  │  - Scrapes /metrics every 15s               │          │
	│  │  - Stores time series data                  │          │
	│  │  - Provides PromQL query interface          │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Metric Registry:
  - Global Prometheus DefaultRegistry
  - All metrics registered at package init
  - Automatic collection of Go runtime metrics
  - Thread-safe for concurrent updates

Gauge Metrics:
  - Instant value that can go up or down
  - Examples: catalogue entries, rows per table
  - Operations: Set, Inc, Dec, Add, Sub

Counter Metrics:
  - Monotonically increasing value
  - Examples: API requests total, allocations total
  - Operations: Inc, Add (cannot decrease)

Histogram Metrics:
  - Distribution of observed values
  - Buckets for latency percentiles (p50, p95, p99)
  - Examples: API request duration, allocation latency
  - Includes: sum, count, buckets

Timer Helper:
  - Convenience wrapper for timing operations
  - Start timer, observe duration to histogram
  - Supports label values for histogram vectors

# Metrics Catalog

All histograms use the default Prometheus buckets.

Table Metrics (registered; no package in this repository updates them):

netwatch_rows_total{table, af}:
  - Type: Gauge (RowsTotal)
  - Description: Rows by table and address family

netwatch_groups_by_status{table, af, status}:
  - Type: Gauge (GroupsByStatus)
  - Description: Scheduling groups by table, address family and status

Scheduling Metrics (recorded by pkg/scheduler):

netwatch_allocation_latency_seconds:
  - Type: Histogram (AllocationLatency)
  - Description: Time taken to serve an allocation request

netwatch_allocations_total{table, outcome}:
  - Type: Counter (AllocationsTotal)
  - Description: Work allocations by table and outcome

netwatch_completions_total{result}:
  - Type: Counter (CompletionsTotal)
  - Description: Reported test completions by result

netwatch_duplicate_records_total{table}:
  - Type: Counter (DuplicateRecordsTotal)
  - Description: Insert attempts rejected as duplicates

netwatch_alias_cascades_total:
  - Type: Counter (AliasCascadesTotal)
  - Description: Alias IP updates propagated to dependent rows

Catalogue Metrics (recorded by pkg/catalogue):

netwatch_catalogue_build_duration_seconds:
  - Type: Histogram (CatalogueBuildDuration)
  - Description: Time taken to rebuild the public catalogue

netwatch_catalogue_entries_total:
  - Type: Gauge (CatalogueEntriesTotal)
  - Description: Entries in the most recently built catalogue

Storage Metrics (recorded by pkg/storage):

netwatch_snapshot_duration_seconds:
  - Type: Histogram (SnapshotDuration)
  - Description: Time taken to write a durable snapshot

netwatch_snapshot_failures_total:
  - Type: Counter (SnapshotFailuresTotal)
  - Description: Fatal snapshot write failures

netwatch_restore_skipped_rows_total{table}:
  - Type: Counter (RestoreSkippedRowsTotal)
  - Description: Rows skipped during restore due to integrity errors

API Metrics (recorded by pkg/api):

netwatch_api_requests_total{endpoint, status}:
  - Type: Counter (APIRequestsTotal)
  - Description: API requests by endpoint and status

netwatch_api_request_duration_seconds{endpoint}:
  - Type: Histogram (APIRequestDuration)
  - Description: API request duration in seconds

netwatch_api_rejected_origin_total{endpoint}:
  - Type: Counter (APIRejectedOriginTotal)
  - Description: Mutating requests rejected for not coming from loopback

Worker Metrics (registered; cmd/worker does not record or serve them):

netwatch_worker_probes_total{service_type, result}:
  - Type: Counter (ProbesTotal)
  - Description: Probes attempted by service type and result

netwatch_worker_probe_duration_seconds{service_type}:
  - Type: Histogram (ProbeDuration)
  - Description: Time taken to probe one endpoint

# Usage

Updating Gauge Metrics:

	import "github.com/cuemby/netwatch/pkg/metrics"

	// Set absolute value
	metrics.CatalogueEntriesTotal.Set(120)

	// Increment/decrement
	metrics.RowsTotal.WithLabelValues("services", "v4").Inc()
	metrics.RowsTotal.WithLabelValues("services", "v4").Dec()

Updating Counter Metrics:

	// Increment by 1
	metrics.AliasCascadesTotal.Inc()

	// Add arbitrary value
	metrics.APIRequestsTotal.WithLabelValues("/work", "200").Add(1)

Recording Histogram Observations:

	// Direct observation
	metrics.AllocationLatency.Observe(0.125) // 125ms

	// Using Timer helper
	timer := metrics.NewTimer()
	// ... perform operation ...
	timer.ObserveDuration(metrics.CatalogueBuildDuration)

Using Timer with Labels:

	timer := metrics.NewTimer()
	// ... perform operation ...
	timer.ObserveDurationVec(metrics.APIRequestDuration, "/work")

Complete Example:

	package main

	import (
		"net/http"
		"time"
		"github.com/cuemby/netwatch/pkg/metrics"
	)

	func main() {
		// Update table metrics
		metrics.RowsTotal.WithLabelValues("services", "v4").Set(30)
		metrics.GroupsByStatus.WithLabelValues("services", "v4", "available").Set(25)

		// Time an operation
		timer := metrics.NewTimer()
		buildCatalogue()
		timer.ObserveDuration(metrics.CatalogueBuildDuration)

		// Expose metrics endpoint
		http.Handle("/metrics", metrics.Handler())
		http.ListenAndServe(":9090", nil)
	}

	func buildCatalogue() {
		// Catalogue rebuild logic
		time.Sleep(100 * time.Millisecond)
	}

# Integration Points

This package integrates with:

  - pkg/scheduler: Records allocation latency and outcomes, completions,
    duplicates and alias cascades
  - pkg/catalogue: Records catalogue build duration and size
  - pkg/storage: Records snapshot duration/failures and skipped restore rows
  - pkg/api: Instruments API requests and serves /metrics via Handler()
  - Prometheus: Scrapes /metrics endpoint

# Design Patterns

Package Init Registration:
  - All metrics registered in init() function
  - MustRegister panics on duplicate registration
  - Ensures metrics available before main()
  - No runtime registration needed

Label Discipline:
  - Use WithLabelValues for cardinality-bounded labels
  - Avoid high-cardinality labels (IDs, timestamps)
  - Document label values in metric description
  - Keep label count low (< 5 per metric)

Timer Pattern:
  - Create timer at operation start
  - Defer or explicitly call ObserveDuration
  - Automatically calculates elapsed time
  - Supports both simple and vector histograms

Global Metrics:
  - Package-level variables for all metrics
  - Accessible from any netwatch package
  - Thread-safe concurrent updates
  - No initialization required by callers

# Performance Characteristics

Metric Update Overhead:
  - Gauge set/inc: ~50ns per operation
  - Counter inc: ~50ns per operation
  - Histogram observe: ~200ns per operation
  - Labels: +100ns per label value
  - Negligible impact on hot path

Memory Usage:
  - Per metric: ~1KB baseline
  - Per label combination: ~100 bytes
  - Histogram buckets: ~50 bytes each
  - Total: ~1-5MB for typical netwatch cluster

Scrape Performance:
  - Metrics gathering: ~1-5ms for full scrape
  - HTTP response: ~10ms for typical metric set
  - Recommendation: Scrape interval ≥ 15s
  - Concurrent scrapes: Safe (read-only)

Cardinality Management:
  - Low cardinality: table, af, status, result, outcome (< 10 values)
  - Medium cardinality: endpoint, service_type (< 100 values)
  - Avoid: group IDs, status IDs, timestamps (unbounded)
  - Best practice: Aggregate high-cardinality in logs

# Troubleshooting

Common Issues:

Missing Metrics:
  - Symptom: Metric not appearing in /metrics output
  - Check: Metric registered in init() function
  - Check: MustRegister called (panics if duplicate)
  - Solution: Verify metric variable is exported

High Cardinality:
  - Symptom: Prometheus memory usage grows
  - Cause: Using IDs or unbounded values as labels
  - Check: Label cardinality (count unique combinations)
  - Solution: Remove high-cardinality labels, aggregate differently

Histogram Bucket Mismatch:
  - Symptom: No data in desired percentiles
  - Cause: Buckets don't cover observed value range
  - Check: Histogram sum / count for average
  - Solution: Customize buckets for value range

Stale Metrics:
  - Symptom: Metrics not updating
  - Cause: Code not calling metric update methods
  - Check: Add logging around metric updates
  - Solution: Instrument code paths correctly

# Monitoring

Prometheus Queries (PromQL):

Scheduling:
  - Allocation rate: rate(netwatch_allocations_total[1m])
  - p95 allocation latency: histogram_quantile(0.95, netwatch_allocation_latency_seconds_bucket)
  - Completion results: rate(netwatch_completions_total[5m])
  - Duplicate inserts: rate(netwatch_duplicate_records_total[5m])

Catalogue and Storage:
  - Catalogue size: netwatch_catalogue_entries_total
  - p95 rebuild time: histogram_quantile(0.95, netwatch_catalogue_build_duration_seconds_bucket)
  - Snapshot failures: increase(netwatch_snapshot_failures_total[1h])

API Performance:
  - Request rate: rate(netwatch_api_requests_total[1m])
  - Error rate: rate(netwatch_api_requests_total{status=~"5.."}[1m])
  - p95 latency: histogram_quantile(0.95, netwatch_api_request_duration_seconds_bucket)
  - Rejected origins: rate(netwatch_api_rejected_origin_total[5m])

# Alerting Rules

Example Prometheus alerts:

Snapshot Failing:
  - Alert: increase(netwatch_snapshot_failures_total[10m]) > 0
  - Description: At least one durable snapshot failed in 10 minutes
  - Action: Check the storage logs and the data directory

High API Latency:
  - Alert: histogram_quantile(0.95, netwatch_api_request_duration_seconds_bucket) > 1
  - Description: p95 API latency > 1 second
  - Action: Check allocation latency and catalogue rebuild time

# Grafana Dashboards

Example dashboard panels:

Scheduling:
  - Time series: Allocations by table and outcome
  - Heatmap: Allocation latency distribution
  - Time series: Completions by result

Catalogue and Storage:
  - Single stat: Catalogue entries
  - Time series: Rebuild and snapshot duration

API Performance:
  - Time series: Request rate by endpoint
  - Time series: p95 latency
  - Time series: Error rate (5xx responses)

# See Also

  - Prometheus documentation: https://prometheus.io/docs/
  - Prometheus client library: https://github.com/prometheus/client_golang
  - PromQL tutorial: https://prometheus.io/docs/prometheus/latest/querying/basics/
  - Histogram best practices: https://prometheus.io/docs/practices/histograms/
*/
package metrics
