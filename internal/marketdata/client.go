package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourusername/portfolio-backtester/internal/config"
	appmetrics "github.com/yourusername/portfolio-backtester/internal/metrics"
	"github.com/yourusername/portfolio-backtester/internal/models"
)

const providerName = "daily_prices_api"

// Client is a rate-limited, quota-tracking HTTP client for the daily prices
// provider. Requests are retried on transient failures and counted against a
// daily quota that resets when the calendar date changes.
type Client struct {
	httpClient *retryablehttp.Client
	limiter    *rate.Limiter
	baseURL    string
	apiKey     string
	logger     *logrus.Logger

	mu         sync.Mutex
	dailyQuota int
	usedToday  int
	quotaDate  time.Time

	// now is replaceable in tests to control quota window rollover
	now func() time.Time
}

// NewClient creates a provider client from configuration
func NewClient(cfg *config.MarketDataConfig, logger *logrus.Logger) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	retryClient.RetryMax = cfg.RetryAttempts
	retryClient.RetryWaitMin = 100 * time.Millisecond
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.CheckRetry = retryPolicy()
	retryClient.Logger = nil

	return &Client{
		httpClient: retryClient,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), 1),
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		logger:     logger,
		dailyQuota: cfg.DailyQuota,
		now:        time.Now,
	}
}

// Name returns the price source name
func (c *Client) Name() string {
	return providerName
}

// QuotaRemaining reports how many requests are left in the current daily window
func (c *Client) QuotaRemaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollQuotaWindowLocked()
	return c.dailyQuota - c.usedToday
}

// FetchDailyCloses retrieves daily closes for a symbol within [start, end]
func (c *Client) FetchDailyCloses(ctx context.Context, symbol string, start, end time.Time) (models.PriceSeries, error) {
	if err := c.consumeQuota(); err != nil {
		return nil, NewProviderError(providerName, ErrCodeQuotaExhausted, "daily quota spent", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, NewProviderError(providerName, ErrCodeRateLimitExceeded, "rate limiter wait failed", err)
	}

	url := fmt.Sprintf("%s/v1/daily?symbol=%s&from=%s&to=%s",
		c.baseURL, symbol, start.Format("2006-01-02"), end.Format("2006-01-02"))

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, NewProviderError(providerName, ErrCodeNetworkError, "failed to create request", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	req.Header.Set("Accept", "application/json")

	appmetrics.RecordMarketDataRequest()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, NewProviderError(providerName, ErrCodeNetworkError, "failed to fetch daily closes", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, NewProviderError(providerName, ErrCodeAuthenticationFailed, "invalid API key", nil)
	case resp.StatusCode == http.StatusNotFound:
		return nil, NewProviderError(providerName, ErrCodeNotFound, fmt.Sprintf("unknown symbol %s", symbol), nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, NewProviderError(providerName, ErrCodeRateLimitExceeded, "provider rate limit exceeded", nil)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(resp.Body)
		return nil, NewProviderError(providerName, ErrCodeServerError,
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)), nil)
	}

	var payload providerResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, NewProviderError(providerName, ErrCodeInvalidData, "failed to parse response", err)
	}

	series, err := payload.toPriceSeries()
	if err != nil {
		return nil, NewProviderError(providerName, ErrCodeInvalidData, "failed to convert bars", err)
	}

	c.logger.WithFields(logrus.Fields{
		"symbol": symbol,
		"bars":   len(series),
	}).Debug("Fetched daily closes")

	return series, nil
}

// Close releases idle connections held by the client
func (c *Client) Close() error {
	c.httpClient.HTTPClient.CloseIdleConnections()
	return nil
}

// consumeQuota reserves one request against the daily quota, rolling the
// window over when the calendar date has changed since the last request.
func (c *Client) consumeQuota() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rollQuotaWindowLocked()

	if c.usedToday >= c.dailyQuota {
		return ErrQuotaExhausted
	}
	c.usedToday++
	appmetrics.SetQuotaRemaining(c.dailyQuota - c.usedToday)
	return nil
}

func (c *Client) rollQuotaWindowLocked() {
	today := c.now().UTC().Truncate(24 * time.Hour)
	if !today.Equal(c.quotaDate) {
		c.quotaDate = today
		c.usedToday = 0
	}
}

// retryPolicy retries on network errors and transient server responses
func retryPolicy() retryablehttp.CheckRetry {
	return func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			return true, err
		}

		switch resp.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true, nil
		}

		return false, nil
	}
}
