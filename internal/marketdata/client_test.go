package marketdata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/portfolio-backtester/internal/config"
)

func testClientConfig(baseURL string) *config.MarketDataConfig {
	return &config.MarketDataConfig{
		BaseURL:            baseURL,
		APIKey:             "test-key",
		DailyQuota:         25,
		RateLimitPerSecond: 1000,
		TimeoutSeconds:     5,
		RetryAttempts:      0,
		CacheTTLSeconds:    60,
	}
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestFetchDailyCloses(t *testing.T) {
	var gotAuth atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(providerResponse{
			Symbol: "VTI",
			Bars: []providerBar{
				{Date: "2023-01-03", Close: "101.25"},
				{Date: "2023-01-02", Close: "100.50"},
				{Date: "2023-01-04", Close: "0"},
			},
		})
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL), quietLogger())
	series, err := client.FetchDailyCloses(context.Background(),
		"VTI", time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	require.Len(t, series, 2, "non-positive closes are dropped")
	assert.Equal(t, "Bearer test-key", gotAuth.Load())
	assert.True(t, series[0].Date.Before(series[1].Date), "series must be sorted ascending")
	assert.Equal(t, 100.50, series[0].Close)
	assert.Equal(t, 101.25, series[1].Close)
}

func TestFetchDailyClosesAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL), quietLogger())
	_, err := client.FetchDailyCloses(context.Background(), "VTI", time.Now().AddDate(0, 0, -5), time.Now())

	var pErr *ProviderError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, ErrCodeAuthenticationFailed, pErr.Code)
}

func TestFetchDailyClosesUnknownSymbol(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL), quietLogger())
	_, err := client.FetchDailyCloses(context.Background(), "NOPE", time.Now().AddDate(0, 0, -5), time.Now())

	var pErr *ProviderError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, ErrCodeNotFound, pErr.Code)
}

func TestQuotaExhaustion(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		json.NewEncoder(w).Encode(providerResponse{Symbol: "VTI"})
	}))
	defer server.Close()

	cfg := testClientConfig(server.URL)
	cfg.DailyQuota = 2
	client := NewClient(cfg, quietLogger())
	client.now = func() time.Time { return time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC) }

	ctx := context.Background()
	start, end := time.Now().AddDate(0, 0, -5), time.Now()

	_, err := client.FetchDailyCloses(ctx, "VTI", start, end)
	require.NoError(t, err)
	_, err = client.FetchDailyCloses(ctx, "VTI", start, end)
	require.NoError(t, err)

	_, err = client.FetchDailyCloses(ctx, "VTI", start, end)
	var pErr *ProviderError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, ErrCodeQuotaExhausted, pErr.Code)
	assert.ErrorIs(t, err, ErrQuotaExhausted)
	assert.Equal(t, int32(2), requests.Load(), "exhausted quota must not reach the provider")
	assert.Equal(t, 0, client.QuotaRemaining())
}

func TestQuotaResetsOnNewCalendarDay(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(providerResponse{Symbol: "VTI"})
	}))
	defer server.Close()

	cfg := testClientConfig(server.URL)
	cfg.DailyQuota = 1
	client := NewClient(cfg, quietLogger())

	current := time.Date(2023, 6, 1, 23, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return current }

	ctx := context.Background()
	start, end := time.Now().AddDate(0, 0, -5), time.Now()

	_, err := client.FetchDailyCloses(ctx, "VTI", start, end)
	require.NoError(t, err)
	_, err = client.FetchDailyCloses(ctx, "VTI", start, end)
	require.Error(t, err)

	// Crossing midnight rolls the window and restores the quota.
	current = current.Add(2 * time.Hour)
	_, err = client.FetchDailyCloses(ctx, "VTI", start, end)
	require.NoError(t, err)
}

func TestProviderResponseRejectsBadBars(t *testing.T) {
	resp := providerResponse{Bars: []providerBar{{Date: "not-a-date", Close: "100"}}}
	_, err := resp.toPriceSeries()
	assert.Error(t, err)

	resp = providerResponse{Bars: []providerBar{{Date: "2023-01-02", Close: "abc"}}}
	_, err = resp.toPriceSeries()
	assert.Error(t, err)
}
