package backtest

import (
	"fmt"
	"math"

	"github.com/yourusername/portfolio-backtester/internal/models"
)

// allocationSumTolerance is the allowed deviation from 100% for the sum of
// allocation percentages.
const allocationSumTolerance = 0.01

// NormalizeInput validates allocations, price coverage and run parameters and
// returns input ready for simulation. It performs no side effects and does not
// mutate its arguments. Callers are expected to have already re-scaled
// allocation percentages to 100% over assets that have price data; assets are
// never silently dropped here.
func NormalizeInput(allocations []models.Allocation, series map[string]models.PriceSeries, params RunParams) (*NormalizedInput, error) {
	if len(allocations) == 0 {
		return nil, &ValidationError{Field: "allocations", Reason: "at least one allocation is required"}
	}

	sum := 0.0
	for _, alloc := range allocations {
		if alloc.Percentage <= 0 {
			return nil, &ValidationError{
				Field:  "allocations",
				Reason: fmt.Sprintf("allocation for %s must be positive, got %.4f", alloc.AssetID, alloc.Percentage),
			}
		}
		sum += alloc.Percentage
	}
	if math.Abs(sum-100) > allocationSumTolerance {
		return nil, &ValidationError{
			Field:  "allocations",
			Reason: fmt.Sprintf("percentages must sum to 100, got %.4f", sum),
		}
	}

	if params.InitialInvestment <= 0 {
		return nil, &ValidationError{Field: "initial_investment", Reason: "must be positive"}
	}

	start := dateOnly(params.StartDate)
	end := dateOnly(params.EndDate)
	if !start.Before(end) {
		return nil, &ValidationError{Field: "date_range", Reason: "start date must be before end date"}
	}

	if _, err := ParseRebalanceFrequency(string(params.RebalanceFrequency)); err != nil {
		return nil, &ValidationError{Field: "rebalance_frequency", Reason: err.Error()}
	}

	for _, alloc := range allocations {
		if len(series[alloc.AssetID]) == 0 {
			return nil, &MissingDataError{AssetID: alloc.AssetID}
		}
	}

	normalized := &NormalizedInput{
		Allocations: allocations,
		Series:      series,
		Params: RunParams{
			StartDate:          start,
			EndDate:            end,
			InitialInvestment:  params.InitialInvestment,
			RebalanceFrequency: params.RebalanceFrequency,
		},
	}
	return normalized, nil
}
