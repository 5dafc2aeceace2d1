package marketdata

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	appmetrics "github.com/yourusername/portfolio-backtester/internal/metrics"
	"github.com/yourusername/portfolio-backtester/internal/models"
)

// CachedPriceSource wraps a PriceSource with an in-memory TTL cache so
// repeated backtests over the same window do not spend provider quota.
type CachedPriceSource struct {
	source PriceSource
	cache  *gocache.Cache
}

// NewCachedPriceSource creates a caching wrapper around a price source
func NewCachedPriceSource(source PriceSource, ttl time.Duration) *CachedPriceSource {
	return &CachedPriceSource{
		source: source,
		cache:  gocache.New(ttl, 2*ttl),
	}
}

// FetchDailyCloses serves from cache when possible, falling through to the
// underlying source on a miss
func (c *CachedPriceSource) FetchDailyCloses(ctx context.Context, symbol string, start, end time.Time) (models.PriceSeries, error) {
	key := cacheKey(symbol, start, end)
	if cached, found := c.cache.Get(key); found {
		appmetrics.RecordCacheHit()
		return cached.(models.PriceSeries), nil
	}
	appmetrics.RecordCacheMiss()

	series, err := c.source.FetchDailyCloses(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}

	c.cache.Set(key, series, gocache.DefaultExpiration)
	return series, nil
}

// Name returns the underlying source name
func (c *CachedPriceSource) Name() string {
	return c.source.Name()
}

// QuotaRemaining reports the underlying source's remaining daily quota, or -1
// when the source does not track one
func (c *CachedPriceSource) QuotaRemaining() int {
	type quotaReporter interface {
		QuotaRemaining() int
	}
	if reporter, ok := c.source.(quotaReporter); ok {
		return reporter.QuotaRemaining()
	}
	return -1
}

func cacheKey(symbol string, start, end time.Time) string {
	return fmt.Sprintf("%s|%s|%s", symbol, start.Format("2006-01-02"), end.Format("2006-01-02"))
}
