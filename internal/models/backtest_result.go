package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// BacktestResult represents a persisted backtest run
type BacktestResult struct {
	ID                 uuid.UUID       `db:"id" json:"id"`
	PortfolioID        uuid.UUID       `db:"portfolio_id" json:"portfolio_id"`
	RunDate            time.Time       `db:"run_date" json:"run_date"`
	StartDate          time.Time       `db:"start_date" json:"start_date"`
	EndDate            time.Time       `db:"end_date" json:"end_date"`
	InitialInvestment  float64         `db:"initial_investment" json:"initial_investment"`
	FinalValue         float64         `db:"final_value" json:"final_value"`
	RebalanceFrequency string          `db:"rebalance_frequency" json:"rebalance_frequency"`
	TotalReturn        float64         `db:"total_return" json:"total_return"`
	AnnualizedReturn   float64         `db:"annualized_return" json:"annualized_return"`
	Volatility         float64         `db:"volatility" json:"volatility"`
	SharpeRatio        float64         `db:"sharpe_ratio" json:"sharpe_ratio"`
	MaxDrawdown        float64         `db:"max_drawdown" json:"max_drawdown"`
	WinRate            float64         `db:"win_rate" json:"win_rate"`
	FullResults        json.RawMessage `db:"full_results" json:"full_results"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
}
