package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/portfolio-backtester/internal/database"
	appmetrics "github.com/yourusername/portfolio-backtester/internal/metrics"
	"github.com/yourusername/portfolio-backtester/internal/models"
	"github.com/yourusername/portfolio-backtester/internal/repository"
)

// Engine orchestrates backtest runs: it loads a portfolio and its price
// history through the repositories, runs the normalize/simulate/aggregate
// pipeline, and assembles the result. The engine holds no cross-run state;
// concurrent runs need no coordination.
type Engine struct {
	config       BacktestConfig
	db           *database.DB
	repositories *repository.Repositories
	logger       *logrus.Logger
}

// NewEngine creates a new backtesting engine
func NewEngine(cfg BacktestConfig, db *database.DB, logger *logrus.Logger) (*Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	repos, err := repository.NewRepositories(db)
	if err != nil {
		return nil, err
	}

	return &Engine{
		config:       cfg,
		db:           db,
		repositories: repos,
		logger:       logger,
	}, nil
}

// Config returns the backtest configuration
func (e *Engine) Config() BacktestConfig {
	return e.config
}

// Logger returns the engine logger
func (e *Engine) Logger() *logrus.Logger {
	return e.logger
}

// Repositories returns the repository container
func (e *Engine) Repositories() *repository.Repositories {
	return e.repositories
}

// Close releases engine resources
func (e *Engine) Close(ctx context.Context) error {
	if e.db == nil {
		return nil
	}
	return e.db.Close(ctx)
}

// Run executes one backtest for the given portfolio using the engine's
// configured parameters.
func (e *Engine) Run(ctx context.Context, portfolioID uuid.UUID) (*Result, error) {
	return e.RunWithParams(ctx, portfolioID, e.config.RunParams())
}

// RunWithParams executes one backtest for the given portfolio. Allocated
// assets with no stored prices in range are dropped and the remaining weights
// re-scaled to 100% before the engine-core validation, so a portfolio with
// partial coverage still produces a usable result.
func (e *Engine) RunWithParams(ctx context.Context, portfolioID uuid.UUID, params RunParams) (*Result, error) {
	started := time.Now()
	e.logger.WithFields(logrus.Fields{
		"portfolio_id": portfolioID,
		"start":        params.StartDate.Format("2006-01-02"),
		"end":          params.EndDate.Format("2006-01-02"),
		"rebalance":    params.RebalanceFrequency,
	}).Info("Starting backtest run")

	portfolio, err := e.repositories.Portfolio.GetByID(ctx, portfolioID)
	if err != nil {
		appmetrics.RecordBacktestRun("failure")
		return nil, fmt.Errorf("failed to load portfolio: %w", err)
	}

	series, err := e.loadPriceSeries(ctx, portfolio.Allocations, params)
	if err != nil {
		appmetrics.RecordBacktestRun("failure")
		return nil, err
	}

	allocations, err := rescaleToAvailable(portfolio.Allocations, series)
	if err != nil {
		appmetrics.RecordBacktestRun("failure")
		return nil, err
	}

	normalized, err := NormalizeInput(allocations, series, params)
	if err != nil {
		appmetrics.RecordBacktestRun("failure")
		return nil, err
	}

	points := Simulate(normalized)
	metrics := CalculateMetrics(points, params.InitialInvestment)

	result := &Result{
		ID:          uuid.New(),
		PortfolioID: portfolioID,
		RunDate:     time.Now().UTC(),
		Params:      normalized.Params,
		Metrics:     metrics,
		Performance: points,
	}

	appmetrics.RecordBacktestRun("success")
	appmetrics.ObserveBacktestDuration(time.Since(started).Seconds())
	e.logger.WithFields(logrus.Fields{
		"portfolio_id": portfolioID,
		"total_return": metrics.TotalReturn,
		"max_drawdown": metrics.MaxDrawdown,
		"days":         metrics.TotalDays,
	}).Info("Backtest run completed")

	return result, nil
}

func (e *Engine) loadPriceSeries(ctx context.Context, allocations []models.Allocation, params RunParams) (map[string]models.PriceSeries, error) {
	series := make(map[string]models.PriceSeries, len(allocations))
	for _, alloc := range allocations {
		s, err := e.repositories.Price.GetByAssetAndRange(ctx, alloc.AssetID, params.StartDate, params.EndDate)
		if err != nil {
			return nil, fmt.Errorf("failed to load prices for %s: %w", alloc.AssetID, err)
		}
		series[alloc.AssetID] = s
	}
	return series, nil
}

// rescaleToAvailable drops allocations for assets with no price coverage and
// re-scales the remaining percentages so they sum to 100 again. The engine
// core never drops assets itself, so the re-scaling lives here at the caller
// boundary.
func rescaleToAvailable(allocations []models.Allocation, series map[string]models.PriceSeries) ([]models.Allocation, error) {
	available := make([]models.Allocation, 0, len(allocations))
	sum := 0.0
	for _, alloc := range allocations {
		if len(series[alloc.AssetID]) == 0 {
			continue
		}
		available = append(available, alloc)
		sum += alloc.Percentage
	}

	if len(available) == 0 {
		if len(allocations) > 0 {
			return nil, &MissingDataError{AssetID: allocations[0].AssetID}
		}
		return nil, &ValidationError{Field: "allocations", Reason: "portfolio has no allocations"}
	}

	if sum != 100 && sum > 0 {
		factor := 100 / sum
		for i := range available {
			available[i].Percentage *= factor
		}
	}

	return available, nil
}
