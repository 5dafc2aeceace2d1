package backtest

import (
	"fmt"
	"time"

	"github.com/yourusername/portfolio-backtester/internal/models"
)

// RebalanceFrequency controls how often holdings are reset to target weights
type RebalanceFrequency string

// Supported rebalance frequencies
const (
	RebalanceNever     RebalanceFrequency = "NEVER"
	RebalanceMonthly   RebalanceFrequency = "MONTHLY"
	RebalanceQuarterly RebalanceFrequency = "QUARTERLY"
	RebalanceAnnually  RebalanceFrequency = "ANNUALLY"
)

// IntervalDays returns the fixed-modulus rebalance interval in days.
// The schedule is day-offset based, not calendar-boundary based: a rebalance
// is due when daysSinceStart modulo the interval is zero.
func (f RebalanceFrequency) IntervalDays() int {
	switch f {
	case RebalanceMonthly:
		return 30
	case RebalanceQuarterly:
		return 90
	case RebalanceAnnually:
		return 365
	default:
		return 0
	}
}

// ParseRebalanceFrequency parses a frequency string
func ParseRebalanceFrequency(s string) (RebalanceFrequency, error) {
	switch RebalanceFrequency(s) {
	case RebalanceNever, RebalanceMonthly, RebalanceQuarterly, RebalanceAnnually:
		return RebalanceFrequency(s), nil
	default:
		return "", fmt.Errorf("unknown rebalance frequency: %q", s)
	}
}

// RunParams holds the parameters for one backtest invocation
type RunParams struct {
	StartDate          time.Time          `json:"start_date"`
	EndDate            time.Time          `json:"end_date"`
	InitialInvestment  float64            `json:"initial_investment"`
	RebalanceFrequency RebalanceFrequency `json:"rebalance_frequency"`
}

// NormalizedInput is validated input ready for simulation. It is produced by
// NormalizeInput and treated as read-only by the simulator.
type NormalizedInput struct {
	Allocations []models.Allocation
	Series      map[string]models.PriceSeries
	Params      RunParams
}

// dateOnly truncates a timestamp to midnight UTC so calendar-day arithmetic
// is stable regardless of the caller's time zone.
func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
