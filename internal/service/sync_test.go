package service

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/portfolio-backtester/internal/models"
)

type fakePriceSource struct {
	series map[string]models.PriceSeries
	errs   map[string]error
	calls  []string
}

func (f *fakePriceSource) FetchDailyCloses(ctx context.Context, symbol string, start, end time.Time) (models.PriceSeries, error) {
	f.calls = append(f.calls, symbol)
	if err := f.errs[symbol]; err != nil {
		return nil, err
	}
	return f.series[symbol], nil
}

func (f *fakePriceSource) Name() string { return "fake" }

type fakeAssetRepo struct {
	upserted []string
}

func (f *fakeAssetRepo) Upsert(ctx context.Context, asset *models.Asset) error {
	f.upserted = append(f.upserted, asset.ID)
	return nil
}
func (f *fakeAssetRepo) GetByID(ctx context.Context, id string) (*models.Asset, error) {
	return nil, models.ErrNotFound
}
func (f *fakeAssetRepo) GetBySymbol(ctx context.Context, symbol string) (*models.Asset, error) {
	return nil, models.ErrNotFound
}
func (f *fakeAssetRepo) List(ctx context.Context) ([]*models.Asset, error) { return nil, nil }

type fakePriceRepo struct {
	latest   map[string]time.Time
	inserted map[string]int
}

func (f *fakePriceRepo) InsertBatch(ctx context.Context, assetID string, points models.PriceSeries) error {
	if f.inserted == nil {
		f.inserted = make(map[string]int)
	}
	f.inserted[assetID] += len(points)
	return nil
}

func (f *fakePriceRepo) GetByAssetAndRange(ctx context.Context, assetID string, start, end time.Time) (models.PriceSeries, error) {
	return nil, nil
}

func (f *fakePriceRepo) GetLatestDate(ctx context.Context, assetID string) (time.Time, error) {
	if latest, ok := f.latest[assetID]; ok {
		return latest, nil
	}
	return time.Time{}, models.ErrNotFound
}

func newTestSyncService(source *fakePriceSource, assets *fakeAssetRepo, prices *fakePriceRepo) *SyncService {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewSyncService(source, assets, prices, log, 30)
}

func somePrices(n int) models.PriceSeries {
	series := make(models.PriceSeries, 0, n)
	base := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -n)
	for i := 0; i < n; i++ {
		series = append(series, models.PricePoint{Date: base.AddDate(0, 0, i), Close: 100 + float64(i)})
	}
	return series
}

func TestSyncSymbolsWritesPrices(t *testing.T) {
	source := &fakePriceSource{series: map[string]models.PriceSeries{
		"VTI": somePrices(5),
		"BND": somePrices(3),
	}}
	assets := &fakeAssetRepo{}
	prices := &fakePriceRepo{}

	svc := newTestSyncService(source, assets, prices)
	metrics, err := svc.SyncSymbols(context.Background(), []string{"VTI", "BND"})

	require.NoError(t, err)
	assert.Equal(t, 2, metrics.SymbolsSynced)
	assert.Equal(t, 8, metrics.RowsWritten)
	assert.Equal(t, 0, metrics.Errors)
	assert.ElementsMatch(t, []string{"VTI", "BND"}, assets.upserted)
	assert.Equal(t, 5, prices.inserted["VTI"])
	assert.Equal(t, 3, prices.inserted["BND"])
}

func TestSyncSymbolsContinuesAfterFailure(t *testing.T) {
	source := &fakePriceSource{
		series: map[string]models.PriceSeries{"BND": somePrices(3)},
		errs:   map[string]error{"VTI": assert.AnError},
	}
	assets := &fakeAssetRepo{}
	prices := &fakePriceRepo{}

	svc := newTestSyncService(source, assets, prices)
	metrics, err := svc.SyncSymbols(context.Background(), []string{"VTI", "BND"})

	require.NoError(t, err, "partial failure is not a run failure")
	assert.Equal(t, 1, metrics.SymbolsSynced)
	assert.Equal(t, 1, metrics.Errors)
	assert.Equal(t, 3, prices.inserted["BND"])
}

func TestSyncSymbolsAllFailed(t *testing.T) {
	source := &fakePriceSource{
		errs: map[string]error{"VTI": assert.AnError, "BND": assert.AnError},
	}
	svc := newTestSyncService(source, &fakeAssetRepo{}, &fakePriceRepo{})

	metrics, err := svc.SyncSymbols(context.Background(), []string{"VTI", "BND"})
	require.Error(t, err)
	assert.Equal(t, 2, metrics.Errors)
}

func TestSyncSymbolSkipsUpToDate(t *testing.T) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	source := &fakePriceSource{}
	prices := &fakePriceRepo{latest: map[string]time.Time{"VTI": today}}

	svc := newTestSyncService(source, &fakeAssetRepo{}, prices)
	metrics, err := svc.SyncSymbols(context.Background(), []string{"VTI"})

	require.NoError(t, err)
	assert.Empty(t, source.calls, "up-to-date symbol must not hit the provider")
	assert.Equal(t, 0, metrics.RowsWritten)
}

func TestResolveSyncStartUsesLookbackForNewSymbols(t *testing.T) {
	prices := &fakePriceRepo{}
	svc := newTestSyncService(&fakePriceSource{}, &fakeAssetRepo{}, prices)

	end := time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC)
	start, err := svc.resolveSyncStart(context.Background(), "NEW", end)
	require.NoError(t, err)
	assert.Equal(t, end.AddDate(0, 0, -30), start)
}

func TestResolveSyncStartContinuesFromLatest(t *testing.T) {
	latest := time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC)
	prices := &fakePriceRepo{latest: map[string]time.Time{"VTI": latest}}
	svc := newTestSyncService(&fakePriceSource{}, &fakeAssetRepo{}, prices)

	start, err := svc.resolveSyncStart(context.Background(), "VTI", time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, latest.AddDate(0, 0, 1), start)
}
