package backtest

import (
	"fmt"
	"time"

	"github.com/yourusername/portfolio-backtester/internal/config"
)

// BacktestConfig extends core config with run-specific settings
type BacktestConfig struct {
	StartDate          time.Time
	EndDate            time.Time
	InitialInvestment  float64
	RebalanceFrequency RebalanceFrequency
	OutputPath         string
}

// FromConfig converts app config to backtest config
func FromConfig(cfg *config.BacktestConfig) (BacktestConfig, error) {
	if cfg == nil {
		return BacktestConfig{}, fmt.Errorf("backtest config is required")
	}
	start, err := time.Parse("2006-01-02", cfg.StartDate)
	if err != nil {
		return BacktestConfig{}, fmt.Errorf("invalid start date: %w", err)
	}
	end, err := time.Parse("2006-01-02", cfg.EndDate)
	if err != nil {
		return BacktestConfig{}, fmt.Errorf("invalid end date: %w", err)
	}
	frequency, err := ParseRebalanceFrequency(cfg.RebalanceFrequency)
	if err != nil {
		return BacktestConfig{}, err
	}

	bt := BacktestConfig{
		StartDate:          start,
		EndDate:            end,
		InitialInvestment:  cfg.InitialInvestment,
		RebalanceFrequency: frequency,
		OutputPath:         cfg.OutputPath,
	}

	return bt, bt.Validate()
}

// Validate validates backtest config parameters
func (b BacktestConfig) Validate() error {
	if !b.StartDate.Before(b.EndDate) {
		return fmt.Errorf("start date must be before end date")
	}
	if b.InitialInvestment <= 0 {
		return fmt.Errorf("initial investment must be positive")
	}
	if _, err := ParseRebalanceFrequency(string(b.RebalanceFrequency)); err != nil {
		return err
	}
	return nil
}

// RunParams converts the config to simulation run parameters
func (b BacktestConfig) RunParams() RunParams {
	return RunParams{
		StartDate:          b.StartDate,
		EndDate:            b.EndDate,
		InitialInvestment:  b.InitialInvestment,
		RebalanceFrequency: b.RebalanceFrequency,
	}
}
