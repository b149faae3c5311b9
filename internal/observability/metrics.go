package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the engine and its workers.
type Metrics struct {
	// --- Engine operations ---
	OpsApplied  *prometheus.CounterVec
	OpsRejected *prometheus.CounterVec
	OpDuration  *prometheus.HistogramVec

	// --- Oracle / price ingestion ---
	PriceUpdates  *prometheus.CounterVec
	PriceRejected *prometheus.CounterVec

	// --- Persistence ---
	PersistBatchDur   prometheus.Histogram
	PersistBatchSize  prometheus.Histogram
	PersistOpsWritten prometheus.Counter
	PersistErrors     *prometheus.CounterVec
	PersistQueueDepth prometheus.Gauge

	// --- HTTP API ---
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	opBuckets := []float64{
		0.000001, 0.000005, 0.00001, 0.000025, 0.00005,
		0.0001, 0.00025, 0.0005, 0.001, 0.002, 0.005, 0.01,
	}

	httpBuckets := []float64{
		0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1,
	}

	return &Metrics{
		OpsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stable_engine_ops_applied_total",
			Help: "Operations successfully committed by the engine",
		}, []string{"op"}),

		OpsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stable_engine_ops_rejected_total",
			Help: "Operations rejected and fully rolled back",
		}, []string{"op", "reason"}),

		OpDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stable_engine_op_duration_seconds",
			Help:    "Time to run one atomic engine step",
			Buckets: opBuckets,
		}, []string{"op"}),

		PriceUpdates: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stable_oracle_price_updates_total",
			Help: "Price updates applied to feeds",
		}, []string{"asset"}),

		PriceRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stable_oracle_price_rejected_total",
			Help: "Price updates dropped (parse error, unknown asset)",
		}, []string{"reason"}),

		PersistBatchDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "stable_persist_batch_duration_seconds",
			Help:    "Time to flush one operation batch to Postgres",
			Buckets: httpBuckets,
		}),

		PersistBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "stable_persist_batch_size",
			Help:    "Operations per flushed batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
		}),

		PersistOpsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stable_persist_ops_written_total",
			Help: "Operation rows written to Postgres",
		}),

		PersistErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stable_persist_errors_total",
			Help: "Persistence failures by stage",
		}, []string{"stage"}),

		PersistQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "stable_persist_queue_depth",
			Help: "Operations waiting in the persistence channel",
		}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stable_http_requests_total",
			Help: "HTTP API requests by route and status",
		}, []string{"route", "status"}),

		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stable_http_request_duration_seconds",
			Help:    "HTTP API request latency",
			Buckets: httpBuckets,
		}, []string{"route"}),
	}
}
