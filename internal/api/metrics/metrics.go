// Package metrics defines and registers the custom Prometheus metrics of the
// filestore API. It is the single source of truth for metric names, labels,
// and help strings.
//
// All collectors are created through promauto and therefore registered with
// the default registry as soon as the package is imported.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "filestore"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// AuthEventsTotal counts recorded auth audit events.
// Label:
//   - kind: the event kind (e.g. "signin.success", "session.renewed")
var AuthEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_events_total",
		Help:      "Total number of auth audit events recorded, by kind.",
	},
	[]string{"kind"},
)

// SessionChecksTotal counts session middleware outcomes.
// Label:
//   - state: the final session state ("authenticated" or "rejected")
//   - renewed: "true" when a fresh access token was issued on the way
var SessionChecksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_checks_total",
		Help:      "Total number of cookie session checks, by outcome.",
	},
	[]string{"state", "renewed"},
)

// ── Audit queue metrics ───────────────────────────────────────────────────────

// AuditDroppedTotal counts events dropped because a worker channel was full.
var AuditDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_dropped_total",
		Help:      "Total number of audit events dropped on a full queue.",
	},
)

// AuditQueueDepth tracks the number of events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// AuditRecordErrorsTotal counts sink failures.
var AuditRecordErrorsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_record_errors_total",
		Help:      "Total number of audit events the sink failed to record.",
	},
)

// ── File metrics ──────────────────────────────────────────────────────────────

// FileOperationsTotal counts file endpoint calls.
// Labels:
//   - op: "upload", "list", "get", "download", "update", "delete"
//   - result: "ok", "not_found", "invalid", "error"
var FileOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "file_operations_total",
		Help:      "Total number of file operations, by operation and result.",
	},
	[]string{"op", "result"},
)

// UploadedBytes observes the size of accepted uploads.
var UploadedBytes = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "uploaded_bytes",
		Help:      "Size of accepted uploads in bytes.",
		Buckets:   prometheus.ExponentialBuckets(1024, 4, 10), // 1KiB .. 256MiB
	},
)
