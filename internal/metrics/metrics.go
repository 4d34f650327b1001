// Package metrics provides Prometheus metrics for silosync operations.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Remote API metrics
	remoteCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "silosync_remote_calls_total",
			Help: "Total number of remote API calls",
		},
		[]string{"method", "success"},
	)

	remoteCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "silosync_remote_call_duration_seconds",
			Help:    "Remote API call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	remoteRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "silosync_remote_retries_total",
			Help: "Total number of retried remote API calls",
		},
		[]string{"method"},
	)

	// Path metrics
	pathObjectsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "silosync_path_objects_created_total",
			Help: "Projects, folders and assets created by path synchronization",
		},
		[]string{"kind"},
	)

	pruneDeletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "silosync_prune_deletions_total",
			Help: "Objects deleted (or that would be deleted in dry-run) by pruning",
		},
		[]string{"kind", "dry_run"},
	)

	// Metadata metrics
	metadataBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "silosync_metadata_batches_total",
			Help: "Metadata batches submitted by reconciliation",
		},
		[]string{"op"},
	)

	metadataEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "silosync_metadata_entries_total",
			Help: "Metadata entries submitted by reconciliation",
		},
		[]string{"op"},
	)

	// Event metrics
	eventSearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "silosync_event_searches_total",
			Help: "Event searches by outcome",
		},
		[]string{"outcome"},
	)

	// Report metrics
	reportRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "silosync_report_rows_total",
			Help: "Inventory report rows written",
		},
		[]string{"sink"},
	)

	// Database metrics
	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "silosync_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"},
	)
)

// RecordRemoteCall records a remote API call.
func RecordRemoteCall(method string, success bool, duration time.Duration) {
	remoteCallsTotal.WithLabelValues(method, strconv.FormatBool(success)).Inc()
	remoteCallDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordRetry records a retried remote API call.
func RecordRetry(method string) {
	remoteRetriesTotal.WithLabelValues(method).Inc()
}

// RecordCreated records a project, folder or asset created by synchronization.
func RecordCreated(kind string) {
	pathObjectsCreated.WithLabelValues(kind).Inc()
}

// RecordPruned records a deletion made by pruning.
func RecordPruned(kind string, dryRun bool) {
	pruneDeletionsTotal.WithLabelValues(kind, strconv.FormatBool(dryRun)).Inc()
}

// RecordMetadataBatch records one submitted metadata batch of n entries.
func RecordMetadataBatch(op string, n int) {
	metadataBatchesTotal.WithLabelValues(op).Inc()
	metadataEntriesTotal.WithLabelValues(op).Add(float64(n))
}

// RecordEventSearch records the outcome of an event search.
func RecordEventSearch(outcome string) {
	eventSearchesTotal.WithLabelValues(outcome).Inc()
}

// RecordReportRows records rows written to a report sink.
func RecordReportRows(sink string, n int) {
	reportRowsTotal.WithLabelValues(sink).Add(float64(n))
}

// RecordDBQuery records a database query duration.
func RecordDBQuery(query string, duration time.Duration) {
	dbQueryDuration.WithLabelValues(query).Observe(duration.Seconds())
}

// WriteTextfile writes every registered metric to path in the text
// exposition format, for node_exporter's textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
