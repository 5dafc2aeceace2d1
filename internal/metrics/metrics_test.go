package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRegistryIsIdempotent(t *testing.T) {
	first := InitRegistry()
	second := InitRegistry()
	assert.Same(t, first, second)
	assert.Same(t, first, GetRegistry())
}

func TestRecordersFeedTheRegistry(t *testing.T) {
	InitRegistry()

	RecordBacktestRun("success")
	ObserveBacktestDuration(0.25)
	RecordSyncRun("partial_failure", 12.5)
	AddPricesSynced(42)
	RecordMarketDataRequest()
	SetQuotaRemaining(17)
	RecordCacheHit()
	RecordCacheMiss()
	MarkSyncCompleted(1_700_000_000)

	families, err := GetRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, family := range families {
		names[family.GetName()] = true
	}
	assert.True(t, names["portfolio_backtester_backtest_runs_total"])
	assert.True(t, names["portfolio_backtester_prices_synced_total"])
	assert.True(t, names["portfolio_backtester_market_data_quota_remaining"])
	assert.True(t, names["portfolio_backtester_sync_duration_seconds"])
}

func TestHandlerServesMetrics(t *testing.T) {
	InitRegistry()
	RecordBacktestRun("success")

	recorder := httptest.NewRecorder()
	Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "portfolio_backtester_backtest_runs_total")
}
