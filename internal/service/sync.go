// Package service contains the price synchronization workflow.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/portfolio-backtester/internal/logger"
	"github.com/yourusername/portfolio-backtester/internal/marketdata"
	appmetrics "github.com/yourusername/portfolio-backtester/internal/metrics"
	"github.com/yourusername/portfolio-backtester/internal/models"
	"github.com/yourusername/portfolio-backtester/internal/repository"
	"github.com/yourusername/portfolio-backtester/internal/tracing"
)

// SyncService pulls daily closes from the market data provider and persists
// them for the backtest engine to consume.
type SyncService struct {
	source       marketdata.PriceSource
	assetRepo    repository.AssetRepository
	priceRepo    repository.PriceRepository
	runLog       *logger.RunLogger
	logger       *logrus.Logger
	lookbackDays int
}

// NewSyncService creates a new price sync service
func NewSyncService(
	source marketdata.PriceSource,
	assetRepo repository.AssetRepository,
	priceRepo repository.PriceRepository,
	log *logrus.Logger,
	lookbackDays int,
) *SyncService {
	if lookbackDays <= 0 {
		lookbackDays = 30
	}

	return &SyncService{
		source:       source,
		assetRepo:    assetRepo,
		priceRepo:    priceRepo,
		runLog:       logger.NewRunLogger(log),
		logger:       log,
		lookbackDays: lookbackDays,
	}
}

// SyncSymbols fetches and stores daily closes for each symbol. Failures on one
// symbol are recorded and the remaining symbols still sync.
func (s *SyncService) SyncSymbols(ctx context.Context, symbols []string) (*SyncMetrics, error) {
	metrics := NewSyncMetrics()
	startTime := time.Now()

	s.logger.WithField("symbols", symbols).Info("Starting price sync")

	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return metrics, err
		}

		var written int
		err := tracing.TraceSync(ctx, "sync."+symbol, func(ctx context.Context) error {
			var symbolErr error
			written, symbolErr = s.syncSymbol(ctx, symbol)
			return symbolErr
		})
		if err != nil {
			metrics.RecordError()
			s.runLog.LogSyncFailed(symbol, err)
			continue
		}

		metrics.RecordSymbol(written)
	}

	metrics.Duration = time.Since(startTime)

	status := "success"
	if metrics.Errors > 0 {
		status = "partial_failure"
	}
	appmetrics.RecordSyncRun(status, metrics.Duration.Seconds())
	appmetrics.AddPricesSynced(metrics.RowsWritten)
	appmetrics.MarkSyncCompleted(float64(time.Now().Unix()))

	s.runLog.LogSyncCompleted(symbols, metrics.RowsWritten, s.quotaRemaining(), metrics.Duration.Seconds())

	if metrics.Errors == len(symbols) && len(symbols) > 0 {
		return metrics, fmt.Errorf("all %d symbols failed to sync", len(symbols))
	}

	return metrics, nil
}

// syncSymbol syncs one symbol and returns the number of price rows written
func (s *SyncService) syncSymbol(ctx context.Context, symbol string) (int, error) {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	start, err := s.resolveSyncStart(ctx, symbol, end)
	if err != nil {
		return 0, err
	}
	if !start.Before(end) {
		s.logger.WithField("symbol", symbol).Debug("Symbol already up to date")
		return 0, nil
	}

	series, err := s.source.FetchDailyCloses(ctx, symbol, start, end)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch closes for %s: %w", symbol, err)
	}
	if len(series) == 0 {
		return 0, nil
	}

	asset := &models.Asset{
		ID:     symbol,
		Symbol: symbol,
		Name:   symbol,
	}
	if err := s.assetRepo.Upsert(ctx, asset); err != nil {
		return 0, fmt.Errorf("failed to upsert asset %s: %w", symbol, err)
	}

	if err := s.priceRepo.InsertBatch(ctx, symbol, series); err != nil {
		return 0, fmt.Errorf("failed to store prices for %s: %w", symbol, err)
	}

	s.logger.WithFields(logrus.Fields{
		"symbol": symbol,
		"rows":   len(series),
		"from":   start.Format("2006-01-02"),
		"to":     end.Format("2006-01-02"),
	}).Info("Synced symbol")

	return len(series), nil
}

// resolveSyncStart picks the first date to fetch: the day after the latest
// stored observation, or the configured lookback window for new symbols.
func (s *SyncService) resolveSyncStart(ctx context.Context, symbol string, end time.Time) (time.Time, error) {
	latest, err := s.priceRepo.GetLatestDate(ctx, symbol)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return end.AddDate(0, 0, -s.lookbackDays), nil
		}
		return time.Time{}, fmt.Errorf("failed to resolve latest date for %s: %w", symbol, err)
	}
	return latest.AddDate(0, 0, 1), nil
}

func (s *SyncService) quotaRemaining() int {
	type quotaReporter interface {
		QuotaRemaining() int
	}
	if reporter, ok := s.source.(quotaReporter); ok {
		return reporter.QuotaRemaining()
	}
	return -1
}
