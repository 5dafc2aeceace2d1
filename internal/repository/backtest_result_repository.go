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
	insertResultQuery = `
		INSERT INTO backtest_results (
			id, portfolio_id, run_date, start_date, end_date,
			initial_investment, final_value, rebalance_frequency,
			total_return, annualized_return, volatility, sharpe_ratio,
			max_drawdown, win_rate, full_results, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW()
		)`

	selectResultColumns = `
		id, portfolio_id, run_date, start_date, end_date,
		initial_investment, final_value, rebalance_frequency,
		total_return, annualized_return, volatility, sharpe_ratio,
		max_drawdown, win_rate, full_results, created_at`

	selectResultByIDQuery = `
		SELECT ` + selectResultColumns + `
		FROM backtest_results
		WHERE id = $1`

	selectResultsByPortfolioQuery = `
		SELECT ` + selectResultColumns + `
		FROM backtest_results
		WHERE portfolio_id = $1
		ORDER BY run_date DESC`

	selectLatestResultsQuery = `
		SELECT ` + selectResultColumns + `
		FROM backtest_results
		ORDER BY run_date DESC
		LIMIT $1`
)

// PostgresBacktestResultRepository implements BacktestResultRepository using PostgreSQL
type PostgresBacktestResultRepository struct {
	db *database.DB
}

// NewPostgresBacktestResultRepository creates a new PostgreSQL backtest result repository
func NewPostgresBacktestResultRepository(db *database.DB) *PostgresBacktestResultRepository {
	return &PostgresBacktestResultRepository{db: db}
}

// SaveResult persists a completed backtest run
func (r *PostgresBacktestResultRepository) SaveResult(ctx context.Context, result *models.BacktestResult) error {
	if result.ID == uuid.Nil {
		result.ID = uuid.New()
	}

	pool := r.db.GetPool()
	_, err := pool.Exec(ctx, insertResultQuery,
		result.ID,
		result.PortfolioID,
		result.RunDate,
		result.StartDate,
		result.EndDate,
		result.InitialInvestment,
		result.FinalValue,
		result.RebalanceFrequency,
		result.TotalReturn,
		result.AnnualizedReturn,
		result.Volatility,
		result.SharpeRatio,
		result.MaxDrawdown,
		result.WinRate,
		result.FullResults,
	)
	if err != nil {
		return fmt.Errorf("failed to save backtest result: %w", err)
	}

	return nil
}

// GetByID retrieves a single backtest result
func (r *PostgresBacktestResultRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BacktestResult, error) {
	pool := r.db.GetPool()

	result, err := scanResult(pool.QueryRow(ctx, selectResultByIDQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get backtest result %s: %w", id, err)
	}

	return result, nil
}

// GetByPortfolioID retrieves all runs for one portfolio, newest first
func (r *PostgresBacktestResultRepository) GetByPortfolioID(ctx context.Context, portfolioID uuid.UUID) ([]*models.BacktestResult, error) {
	return r.queryMany(ctx, selectResultsByPortfolioQuery, portfolioID)
}

// GetLatest retrieves the most recent runs across all portfolios
func (r *PostgresBacktestResultRepository) GetLatest(ctx context.Context, limit int) ([]*models.BacktestResult, error) {
	return r.queryMany(ctx, selectLatestResultsQuery, limit)
}

func (r *PostgresBacktestResultRepository) queryMany(ctx context.Context, query string, arg any) ([]*models.BacktestResult, error) {
	pool := r.db.GetPool()

	rows, err := pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query backtest results: %w", err)
	}
	defer rows.Close()

	var results []*models.BacktestResult
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan backtest result: %w", err)
		}
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating backtest results: %w", err)
	}

	return results, nil
}

func scanResult(row pgx.Row) (*models.BacktestResult, error) {
	var result models.BacktestResult
	err := row.Scan(
		&result.ID,
		&result.PortfolioID,
		&result.RunDate,
		&result.StartDate,
		&result.EndDate,
		&result.InitialInvestment,
		&result.FinalValue,
		&result.RebalanceFrequency,
		&result.TotalReturn,
		&result.AnnualizedReturn,
		&result.Volatility,
		&result.SharpeRatio,
		&result.MaxDrawdown,
		&result.WinRate,
		&result.FullResults,
		&result.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &result, nil
}
