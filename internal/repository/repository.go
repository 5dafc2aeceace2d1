package repository

import (
	"fmt"

	"github.com/yourusername/portfolio-backtester/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Portfolio      PortfolioRepository
	Asset          AssetRepository
	Price          PriceRepository
	BacktestResult BacktestResultRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Portfolio:      NewPostgresPortfolioRepository(db),
		Asset:          NewPostgresAssetRepository(db),
		Price:          NewPostgresPriceRepository(db),
		BacktestResult: NewPostgresBacktestResultRepository(db),
	}, nil
}
