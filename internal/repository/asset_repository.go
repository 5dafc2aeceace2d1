package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/portfolio-backtester/internal/database"
	"github.com/yourusername/portfolio-backtester/internal/models"
)

const (
	upsertAssetQuery = `
		INSERT INTO assets (id, symbol, name, currency, exchange, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			symbol = EXCLUDED.symbol,
			name = EXCLUDED.name,
			currency = EXCLUDED.currency,
			exchange = EXCLUDED.exchange,
			updated_at = NOW()`

	selectAssetByIDQuery = `
		SELECT id, symbol, name, currency, exchange, created_at, updated_at
		FROM assets
		WHERE id = $1`

	selectAssetBySymbolQuery = `
		SELECT id, symbol, name, currency, exchange, created_at, updated_at
		FROM assets
		WHERE symbol = $1`

	selectAssetsQuery = `
		SELECT id, symbol, name, currency, exchange, created_at, updated_at
		FROM assets
		ORDER BY symbol`
)

// PostgresAssetRepository implements AssetRepository using PostgreSQL
type PostgresAssetRepository struct {
	db *database.DB
}

// NewPostgresAssetRepository creates a new PostgreSQL asset repository
func NewPostgresAssetRepository(db *database.DB) *PostgresAssetRepository {
	return &PostgresAssetRepository{db: db}
}

// Upsert inserts or updates asset metadata
func (r *PostgresAssetRepository) Upsert(ctx context.Context, asset *models.Asset) error {
	pool := r.db.GetPool()

	_, err := pool.Exec(ctx, upsertAssetQuery,
		asset.ID,
		asset.Symbol,
		asset.Name,
		asset.Currency,
		asset.Exchange,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert asset %s: %w", asset.ID, err)
	}

	return nil
}

// GetByID retrieves an asset by its identifier
func (r *PostgresAssetRepository) GetByID(ctx context.Context, id string) (*models.Asset, error) {
	return r.getOne(ctx, selectAssetByIDQuery, id)
}

// GetBySymbol retrieves an asset by its ticker symbol
func (r *PostgresAssetRepository) GetBySymbol(ctx context.Context, symbol string) (*models.Asset, error) {
	return r.getOne(ctx, selectAssetBySymbolQuery, symbol)
}

// List retrieves all known assets ordered by symbol
func (r *PostgresAssetRepository) List(ctx context.Context) ([]*models.Asset, error) {
	pool := r.db.GetPool()

	rows, err := pool.Query(ctx, selectAssetsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	var assets []*models.Asset
	for rows.Next() {
		var asset models.Asset
		if err := rows.Scan(
			&asset.ID,
			&asset.Symbol,
			&asset.Name,
			&asset.Currency,
			&asset.Exchange,
			&asset.CreatedAt,
			&asset.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, &asset)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assets: %w", err)
	}

	return assets, nil
}

func (r *PostgresAssetRepository) getOne(ctx context.Context, query, arg string) (*models.Asset, error) {
	pool := r.db.GetPool()

	var asset models.Asset
	err := pool.QueryRow(ctx, query, arg).Scan(
		&asset.ID,
		&asset.Symbol,
		&asset.Name,
		&asset.Currency,
		&asset.Exchange,
		&asset.CreatedAt,
		&asset.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get asset %q: %w", arg, err)
	}

	return &asset, nil
}
