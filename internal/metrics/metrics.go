// Package metrics provides the centralized Prometheus metrics registry for the backtester.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	BacktestRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portfolio_backtester",
		Name:      "backtest_runs_total",
		Help:      "Total number of backtest runs by outcome",
	}, []string{"status"})
	PricesSyncedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "portfolio_backtester",
		Name:      "prices_synced_total",
		Help:      "Total number of daily price rows written by the sync job",
	})
	SyncRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portfolio_backtester",
		Name:      "sync_runs_total",
		Help:      "Total number of price sync runs by outcome",
	}, []string{"status"})
	MarketDataRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "portfolio_backtester",
		Name:      "market_data_requests_total",
		Help:      "Total number of requests issued to the market data provider",
	})
	PriceCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "portfolio_backtester",
		Name:      "price_cache_hits_total",
		Help:      "Total number of price series served from the in-memory cache",
	})
	PriceCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "portfolio_backtester",
		Name:      "price_cache_misses_total",
		Help:      "Total number of price series cache misses",
	})
)

// Gauge metrics
var (
	MarketDataQuotaRemaining = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "portfolio_backtester",
		Name:      "market_data_quota_remaining",
		Help:      "Remaining provider requests in the current daily quota window",
	})
	LastSyncTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "portfolio_backtester",
		Name:      "last_sync_timestamp_seconds",
		Help:      "Unix timestamp of the last successful price sync",
	})
)

// Histogram metrics
var (
	BacktestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "portfolio_backtester",
		Name:      "backtest_duration_seconds",
		Help:      "Duration of backtest runs in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	})
	SyncDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "portfolio_backtester",
		Name:      "sync_duration_seconds",
		Help:      "Duration of price sync runs in seconds",
		Buckets:   []float64{1, 5, 10, 30, 60, 300, 600},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(BacktestRunsTotal)
		registry.MustRegister(PricesSyncedTotal)
		registry.MustRegister(SyncRunsTotal)
		registry.MustRegister(MarketDataRequestsTotal)
		registry.MustRegister(PriceCacheHitsTotal)
		registry.MustRegister(PriceCacheMissesTotal)

		registry.MustRegister(MarketDataQuotaRemaining)
		registry.MustRegister(LastSyncTimestamp)

		registry.MustRegister(BacktestDuration)
		registry.MustRegister(SyncDuration)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordBacktestRun records a completed backtest run with its outcome status.
func RecordBacktestRun(status string) {
	BacktestRunsTotal.WithLabelValues(status).Inc()
}

// ObserveBacktestDuration records how long a backtest run took.
func ObserveBacktestDuration(durationSeconds float64) {
	BacktestDuration.Observe(durationSeconds)
}

// RecordSyncRun records a completed price sync run with its outcome status.
func RecordSyncRun(status string, durationSeconds float64) {
	SyncRunsTotal.WithLabelValues(status).Inc()
	SyncDuration.Observe(durationSeconds)
}

// AddPricesSynced adds to the count of price rows written by the sync job.
func AddPricesSynced(count int) {
	PricesSyncedTotal.Add(float64(count))
}

// RecordMarketDataRequest records one request against the provider.
func RecordMarketDataRequest() {
	MarketDataRequestsTotal.Inc()
}

// SetQuotaRemaining updates the remaining daily quota gauge.
func SetQuotaRemaining(remaining int) {
	MarketDataQuotaRemaining.Set(float64(remaining))
}

// RecordCacheHit records a price series served from cache.
func RecordCacheHit() {
	PriceCacheHitsTotal.Inc()
}

// RecordCacheMiss records a price series cache miss.
func RecordCacheMiss() {
	PriceCacheMissesTotal.Inc()
}

// MarkSyncCompleted records the wall-clock time of a successful sync.
func MarkSyncCompleted(unixSeconds float64) {
	LastSyncTimestamp.Set(unixSeconds)
}
