package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// namespace defines the global prefix for all metrics (e.g., hermes_...).
const namespace = "hermes"

// lowLatencyBuckets defines custom buckets for the evaluation path.
// Standard buckets are too coarse (starting at 5ms); evaluation is a pure
// in-memory function plus at most one cache read, so sub-millisecond
// resolution matters. Range: 0.5ms to 500ms.
var lowLatencyBuckets = []float64{.0005, .001, .002, .005, .010, .015, .020, .025, .050, .100, .500}

var (
	// -------------------------------------------------------------------------
	// SYNC PATH (Aggregator + Publisher)
	// -------------------------------------------------------------------------

	// SyncCyclesTotal counts shop sync attempts by outcome.
	// Metric: hermes_syncer_shop_syncs_total
	SyncCyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "syncer",
		Name:      "shop_syncs_total",
		Help:      "Total shop sync attempts by outcome",
	}, []string{"outcome"}) // "success", "source_error", "publish_error"

	// SyncDuration measures end-to-end sync latency per shop.
	// Metric: hermes_syncer_sync_duration_seconds
	SyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "syncer",
		Name:      "sync_duration_seconds",
		Help:      "Time taken to aggregate and publish one shop's rule set",
		Buckets:   prometheus.DefBuckets,
	})

	// RulesPublished reports the size of the most recently published rule set.
	// Metric: hermes_syncer_rules_published
	RulesPublished = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "syncer",
		Name:      "rules_published",
		Help:      "Number of rules in the most recently published rule set per shop",
	}, []string{"shop_id"})

	// RecordsSkipped counts source records dropped during aggregation.
	// Metric: hermes_syncer_records_skipped_total
	RecordsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "syncer",
		Name:      "records_skipped_total",
		Help:      "Discount records excluded from aggregation by reason",
	}, []string{"reason"}) // "malformed", "inert", "inactive"

	// -------------------------------------------------------------------------
	// EVALUATION PATH (Data Plane)
	// -------------------------------------------------------------------------

	// EvalDuration measures the latency of evaluation requests.
	// Metric: hermes_data_plane_eval_duration_seconds
	EvalDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "data_plane",
		Name:      "eval_duration_seconds",
		Help:      "Time taken to handle evaluation requests",
		Buckets:   lowLatencyBuckets,
	}, []string{"surface"}) // "cart", "delivery"

	// CacheLookups counts L1/L2 rule-set lookups by result.
	// Metric: hermes_data_plane_cache_lookups_total
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "data_plane",
		Name:      "cache_lookups_total",
		Help:      "Rule set cache lookups by layer and result",
	}, []string{"layer", "result"}) // layer: "l1"/"l2", result: "hit"/"miss"/"error"

	// -------------------------------------------------------------------------
	// CONTROL PLANE (HTTP)
	// -------------------------------------------------------------------------

	// ControlPlaneReqDuration measures the latency of HTTP requests.
	// Metric: hermes_control_plane_http_handling_seconds
	ControlPlaneReqDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "control_plane",
		Name:      "http_handling_seconds",
		Help:      "Time taken to handle HTTP requests in the control plane",
		Buckets:   prometheus.DefBuckets, // admin traffic is human speed
	}, []string{"method", "route"}) // route is the chi pattern, not the raw path

	// ControlPlaneReqTotal counts the total number of HTTP requests.
	// Metric: hermes_control_plane_http_requests_total
	ControlPlaneReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "control_plane",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests in the control plane",
	}, []string{"method", "route", "code"})
)
