package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/portfolio-backtester/internal/models"
)

// PortfolioRepository defines the interface for portfolio data access
type PortfolioRepository interface {
	Create(ctx context.Context, portfolio *models.Portfolio) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Portfolio, error)
	GetByName(ctx context.Context, name string) (*models.Portfolio, error)
	List(ctx context.Context, limit int) ([]*models.Portfolio, error)
	Update(ctx context.Context, portfolio *models.Portfolio) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// AssetRepository defines the interface for asset metadata access
type AssetRepository interface {
	Upsert(ctx context.Context, asset *models.Asset) error
	GetByID(ctx context.Context, id string) (*models.Asset, error)
	GetBySymbol(ctx context.Context, symbol string) (*models.Asset, error)
	List(ctx context.Context) ([]*models.Asset, error)
}

// PriceRepository defines the interface for daily price history access
type PriceRepository interface {
	InsertBatch(ctx context.Context, assetID string, points models.PriceSeries) error
	GetByAssetAndRange(ctx context.Context, assetID string, start, end time.Time) (models.PriceSeries, error)
	GetLatestDate(ctx context.Context, assetID string) (time.Time, error)
}

// BacktestResultRepository defines backtest result persistence
type BacktestResultRepository interface {
	SaveResult(ctx context.Context, result *models.BacktestResult) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.BacktestResult, error)
	GetByPortfolioID(ctx context.Context, portfolioID uuid.UUID) ([]*models.BacktestResult, error)
	GetLatest(ctx context.Context, limit int) ([]*models.BacktestResult, error)
}
