package backtest

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/portfolio-backtester/internal/models"
)

// Result is the aggregate output of one backtest run: the echoed input
// parameters, all derived metrics, and the full daily performance series.
// It is created once per run and never mutated afterwards.
type Result struct {
	ID          uuid.UUID         `json:"id"`
	PortfolioID uuid.UUID         `json:"portfolio_id"`
	RunDate     time.Time         `json:"run_date"`
	Params      RunParams         `json:"params"`
	Metrics     Metrics           `json:"metrics"`
	Performance PerformanceSeries `json:"performance"`
}

// ToJSON exports the result to JSON
func (r *Result) ToJSON() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ToDB converts the result to its persisted representation. The full payload
// (metrics plus the daily series) is stored as a JSON document next to the
// headline columns.
func (r *Result) ToDB() (*models.BacktestResult, error) {
	payload, err := json.Marshal(struct {
		Metrics     Metrics           `json:"metrics"`
		Performance PerformanceSeries `json:"performance"`
	}{r.Metrics, r.Performance})
	if err != nil {
		return nil, err
	}

	return &models.BacktestResult{
		ID:                 r.ID,
		PortfolioID:        r.PortfolioID,
		RunDate:            r.RunDate,
		StartDate:          r.Params.StartDate,
		EndDate:            r.Params.EndDate,
		InitialInvestment:  r.Params.InitialInvestment,
		FinalValue:         r.Metrics.FinalValue,
		RebalanceFrequency: string(r.Params.RebalanceFrequency),
		TotalReturn:        r.Metrics.TotalReturn,
		AnnualizedReturn:   r.Metrics.AnnualizedReturn,
		Volatility:         r.Metrics.Volatility,
		SharpeRatio:        r.Metrics.SharpeRatio,
		MaxDrawdown:        r.Metrics.MaxDrawdown,
		WinRate:            r.Metrics.WinRate,
		FullResults:        payload,
		CreatedAt:          r.RunDate,
	}, nil
}
