package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/portfolio-backtester/internal/database"
	"github.com/yourusername/portfolio-backtester/internal/models"
)

const (
	insertPortfolioQuery = `
		INSERT INTO portfolios (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())`

	insertAllocationQuery = `
		INSERT INTO portfolio_allocations (portfolio_id, asset_id, percentage)
		VALUES ($1, $2, $3)`

	selectPortfolioByIDQuery = `
		SELECT id, name, description, created_at, updated_at
		FROM portfolios
		WHERE id = $1`

	selectPortfolioByNameQuery = `
		SELECT id, name, description, created_at, updated_at
		FROM portfolios
		WHERE name = $1`

	selectPortfoliosQuery = `
		SELECT id, name, description, created_at, updated_at
		FROM portfolios
		ORDER BY created_at DESC
		LIMIT $1`

	selectAllocationsQuery = `
		SELECT asset_id, percentage
		FROM portfolio_allocations
		WHERE portfolio_id = $1
		ORDER BY asset_id`

	updatePortfolioQuery = `
		UPDATE portfolios
		SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1`

	deleteAllocationsQuery = `
		DELETE FROM portfolio_allocations WHERE portfolio_id = $1`

	deletePortfolioQuery = `
		DELETE FROM portfolios WHERE id = $1`
)

// PostgresPortfolioRepository implements PortfolioRepository using PostgreSQL
type PostgresPortfolioRepository struct {
	db *database.DB
}

// NewPostgresPortfolioRepository creates a new PostgreSQL portfolio repository
func NewPostgresPortfolioRepository(db *database.DB) *PostgresPortfolioRepository {
	return &PostgresPortfolioRepository{db: db}
}

// Create inserts a portfolio and its allocations
func (r *PostgresPortfolioRepository) Create(ctx context.Context, portfolio *models.Portfolio) error {
	if portfolio.Name == "" {
		return models.ErrPortfolioNameRequired
	}
	if portfolio.ID == uuid.Nil {
		portfolio.ID = uuid.New()
	}

	return r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertPortfolioQuery, portfolio.ID, portfolio.Name, portfolio.Description); err != nil {
			return fmt.Errorf("failed to insert portfolio: %w", err)
		}

		for _, alloc := range portfolio.Allocations {
			if _, err := tx.Exec(ctx, insertAllocationQuery, portfolio.ID, alloc.AssetID, alloc.Percentage); err != nil {
				return fmt.Errorf("failed to insert allocation for asset %s: %w", alloc.AssetID, err)
			}
		}
		return nil
	})
}

// GetByID retrieves a portfolio with its allocations
func (r *PostgresPortfolioRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Portfolio, error) {
	pool := r.db.GetPool()

	var portfolio models.Portfolio
	err := pool.QueryRow(ctx, selectPortfolioByIDQuery, id).Scan(
		&portfolio.ID,
		&portfolio.Name,
		&portfolio.Description,
		&portfolio.CreatedAt,
		&portfolio.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get portfolio %s: %w", id, err)
	}

	allocations, err := r.loadAllocations(ctx, id)
	if err != nil {
		return nil, err
	}
	portfolio.Allocations = allocations

	return &portfolio, nil
}

// GetByName retrieves a portfolio by its unique name
func (r *PostgresPortfolioRepository) GetByName(ctx context.Context, name string) (*models.Portfolio, error) {
	pool := r.db.GetPool()

	var portfolio models.Portfolio
	err := pool.QueryRow(ctx, selectPortfolioByNameQuery, name).Scan(
		&portfolio.ID,
		&portfolio.Name,
		&portfolio.Description,
		&portfolio.CreatedAt,
		&portfolio.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get portfolio %q: %w", name, err)
	}

	allocations, err := r.loadAllocations(ctx, portfolio.ID)
	if err != nil {
		return nil, err
	}
	portfolio.Allocations = allocations

	return &portfolio, nil
}

// List retrieves the most recently created portfolios
func (r *PostgresPortfolioRepository) List(ctx context.Context, limit int) ([]*models.Portfolio, error) {
	pool := r.db.GetPool()

	rows, err := pool.Query(ctx, selectPortfoliosQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	defer rows.Close()

	var portfolios []*models.Portfolio
	for rows.Next() {
		var portfolio models.Portfolio
		if err := rows.Scan(
			&portfolio.ID,
			&portfolio.Name,
			&portfolio.Description,
			&portfolio.CreatedAt,
			&portfolio.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		portfolios = append(portfolios, &portfolio)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolios: %w", err)
	}

	for _, portfolio := range portfolios {
		allocations, err := r.loadAllocations(ctx, portfolio.ID)
		if err != nil {
			return nil, err
		}
		portfolio.Allocations = allocations
	}

	return portfolios, nil
}

// Update rewrites a portfolio's fields and replaces its allocations
func (r *PostgresPortfolioRepository) Update(ctx context.Context, portfolio *models.Portfolio) error {
	if portfolio.Name == "" {
		return models.ErrPortfolioNameRequired
	}

	return r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, updatePortfolioQuery, portfolio.ID, portfolio.Name, portfolio.Description)
		if err != nil {
			return fmt.Errorf("failed to update portfolio %s: %w", portfolio.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return models.ErrNotFound
		}

		if _, err := tx.Exec(ctx, deleteAllocationsQuery, portfolio.ID); err != nil {
			return fmt.Errorf("failed to clear allocations for portfolio %s: %w", portfolio.ID, err)
		}
		for _, alloc := range portfolio.Allocations {
			if _, err := tx.Exec(ctx, insertAllocationQuery, portfolio.ID, alloc.AssetID, alloc.Percentage); err != nil {
				return fmt.Errorf("failed to insert allocation for asset %s: %w", alloc.AssetID, err)
			}
		}
		return nil
	})
}

// Delete removes a portfolio and its allocations
func (r *PostgresPortfolioRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, deleteAllocationsQuery, id); err != nil {
			return fmt.Errorf("failed to delete allocations for portfolio %s: %w", id, err)
		}

		tag, err := tx.Exec(ctx, deletePortfolioQuery, id)
		if err != nil {
			return fmt.Errorf("failed to delete portfolio %s: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			return models.ErrNotFound
		}
		return nil
	})
}

func (r *PostgresPortfolioRepository) loadAllocations(ctx context.Context, portfolioID uuid.UUID) ([]models.Allocation, error) {
	pool := r.db.GetPool()

	rows, err := pool.Query(ctx, selectAllocationsQuery, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to load allocations for portfolio %s: %w", portfolioID, err)
	}
	defer rows.Close()

	var allocations []models.Allocation
	for rows.Next() {
		var alloc models.Allocation
		if err := rows.Scan(&alloc.AssetID, &alloc.Percentage); err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		allocations = append(allocations, alloc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating allocations: %w", err)
	}

	return allocations, nil
}
