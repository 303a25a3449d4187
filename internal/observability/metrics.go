// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Settlement metrics
	SettlementsTotal    *prometheus.CounterVec
	SettlementErrors    *prometheus.CounterVec
	SettlementDuration  *prometheus.HistogramVec
	DegradedSettlements prometheus.Counter

	// Quote metrics
	QuotesRequested  *prometheus.CounterVec
	QuoteErrors      prometheus.Counter
	QuoteLatency     *prometheus.HistogramVec
	MetadataCacheHit prometheus.Counter

	// Wallet metrics
	WalletsCreated prometheus.Counter
	LockConflicts  prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulSettlement prometheus.Gauge
	UptimeSeconds            prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "virtual_wallet_lab"
	}

	return &Metrics{
		// Settlement metrics
		SettlementsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "settlements_total",
			Help:      "Total number of settlements by swap type and mode",
		}, []string{"swap_type", "mode"}),
		SettlementErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "settlement_errors_total",
			Help:      "Total number of failed settlements by error kind",
		}, []string{"error_kind"}),
		SettlementDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "settlement_duration_seconds",
			Help:      "Settlement duration in seconds by mode",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
		DegradedSettlements: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "degraded_settlements_total",
			Help:      "Total number of settlements completed with degraded token metadata",
		}),

		// Quote metrics
		QuotesRequested: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quote",
			Name:      "quotes_requested_total",
			Help:      "Total number of quotes requested by swap type",
		}, []string{"swap_type"}),
		QuoteErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quote",
			Name:      "quote_errors_total",
			Help:      "Total number of upstream quote failures",
		}),
		QuoteLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "quote",
			Name:      "quote_latency_seconds",
			Help:      "Upstream quote call latency in seconds by endpoint",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		MetadataCacheHit: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quote",
			Name:      "metadata_cache_hits_total",
			Help:      "Total number of token metadata cache hits",
		}),

		// Wallet metrics
		WalletsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "wallets_created_total",
			Help:      "Total number of wallets created and seeded",
		}),
		LockConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "lock_conflicts_total",
			Help:      "Total number of settlements that lost the wallet row lock race",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"operation"}),

		// Health metrics
		LastSuccessfulSettlement: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_settlement_timestamp",
			Help:      "Unix timestamp of last successfully executed settlement",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSettlement records a completed settlement.
func RecordSettlement(swapType, mode string, durationSeconds float64) {
	DefaultMetrics.SettlementsTotal.WithLabelValues(swapType, mode).Inc()
	DefaultMetrics.SettlementDuration.WithLabelValues(mode).Observe(durationSeconds)
}

// RecordSettlementError records a failed settlement by error kind.
func RecordSettlementError(errorKind string) {
	DefaultMetrics.SettlementErrors.WithLabelValues(errorKind).Inc()
}

// RecordDegradedSettlement records a settlement that fell back to default
// token metadata.
func RecordDegradedSettlement() {
	DefaultMetrics.DegradedSettlements.Inc()
}

// RecordQuoteRequested increments the quote counter for a swap type.
func RecordQuoteRequested(swapType string) {
	DefaultMetrics.QuotesRequested.WithLabelValues(swapType).Inc()
}

// RecordQuoteError increments the upstream quote failure counter.
func RecordQuoteError() {
	DefaultMetrics.QuoteErrors.Inc()
}

// RecordQuoteLatency records one upstream call's latency by endpoint.
func RecordQuoteLatency(endpoint string, seconds float64) {
	DefaultMetrics.QuoteLatency.WithLabelValues(endpoint).Observe(seconds)
}

// RecordMetadataCacheHit increments the token metadata cache hit counter.
func RecordMetadataCacheHit() {
	DefaultMetrics.MetadataCacheHit.Inc()
}

// RecordWalletCreated increments the wallets created counter.
func RecordWalletCreated() {
	DefaultMetrics.WalletsCreated.Inc()
}

// RecordLockConflict increments the lock conflict counter.
func RecordLockConflict() {
	DefaultMetrics.LockConflicts.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(operation).Inc()
	}
}
