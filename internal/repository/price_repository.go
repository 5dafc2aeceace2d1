package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/portfolio-backtester/internal/database"
	"github.com/yourusername/portfolio-backtester/internal/models"
)

const (
	upsertPriceQuery = `
		INSERT INTO daily_prices (asset_id, date, close_price)
		VALUES ($1, $2, $3)
		ON CONFLICT (asset_id, date) DO UPDATE SET close_price = EXCLUDED.close_price`

	selectPricesByRangeQuery = `
		SELECT date, close_price
		FROM daily_prices
		WHERE asset_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC`

	selectLatestPriceDateQuery = `
		SELECT MAX(date)
		FROM daily_prices
		WHERE asset_id = $1`
)

// PostgresPriceRepository implements PriceRepository using PostgreSQL
type PostgresPriceRepository struct {
	db *database.DB
}

// NewPostgresPriceRepository creates a new PostgreSQL price repository
func NewPostgresPriceRepository(db *database.DB) *PostgresPriceRepository {
	return &PostgresPriceRepository{db: db}
}

// InsertBatch upserts a batch of daily closes for one asset in a single transaction
func (r *PostgresPriceRepository) InsertBatch(ctx context.Context, assetID string, points models.PriceSeries) error {
	if len(points) == 0 {
		return nil
	}

	return r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		for _, point := range points {
			if _, err := tx.Exec(ctx, upsertPriceQuery, assetID, point.Date, point.Close); err != nil {
				return fmt.Errorf("failed to upsert price for %s on %s: %w",
					assetID, point.Date.Format("2006-01-02"), err)
			}
		}
		return nil
	})
}

// GetByAssetAndRange retrieves daily closes for an asset within [start, end],
// ordered by date ascending
func (r *PostgresPriceRepository) GetByAssetAndRange(ctx context.Context, assetID string, start, end time.Time) (models.PriceSeries, error) {
	pool := r.db.GetPool()

	rows, err := pool.Query(ctx, selectPricesByRangeQuery, assetID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices for %s: %w", assetID, err)
	}
	defer rows.Close()

	var series models.PriceSeries
	for rows.Next() {
		var point models.PricePoint
		if err := rows.Scan(&point.Date, &point.Close); err != nil {
			return nil, fmt.Errorf("failed to scan price point: %w", err)
		}
		series = append(series, point)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prices: %w", err)
	}

	return series, nil
}

// GetLatestDate returns the most recent observation date stored for an asset
func (r *PostgresPriceRepository) GetLatestDate(ctx context.Context, assetID string) (time.Time, error) {
	pool := r.db.GetPool()

	var latest *time.Time
	err := pool.QueryRow(ctx, selectLatestPriceDateQuery, assetID).Scan(&latest)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, models.ErrNotFound
		}
		return time.Time{}, fmt.Errorf("failed to get latest price date for %s: %w", assetID, err)
	}
	if latest == nil {
		return time.Time{}, models.ErrNotFound
	}

	return *latest, nil
}
