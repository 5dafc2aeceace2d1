package backtest

import "time"

// Simulate walks the calendar day-by-day from the start date to the end date
// inclusive, holding a share count per asset, applying the fixed-modulus
// rebalance schedule, and emitting one PerformancePoint per day. Missing
// prices mid-range never fail: the last known close is carried forward, and a
// day before any observation falls back to the nearest later close. The run is
// a pure function of its input; identical inputs yield identical output.
func Simulate(in *NormalizedInput) PerformanceSeries {
	start := dateOnly(in.Params.StartDate)
	end := dateOnly(in.Params.EndDate)
	totalDays := daysBetween(start, end) + 1

	shares := buyInitialShares(in, start)
	interval := in.Params.RebalanceFrequency.IntervalDays()

	points := make(PerformanceSeries, 0, totalDays)
	previousValue := in.Params.InitialInvestment

	for day := 0; day < totalDays; day++ {
		date := start.AddDate(0, 0, day)

		// Rebalances are frictionless: holdings are reset to target weights at
		// the day's resolved prices with no transaction costs, so the portfolio
		// value is unchanged by the rebalance itself.
		if interval > 0 && day > 0 && day%interval == 0 {
			preRebalanceValue := portfolioValue(shares, in, date)
			if preRebalanceValue > 0 {
				rebalance(shares, in, preRebalanceValue, date)
			}
		}

		value := portfolioValue(shares, in, date)

		dailyReturn := 0.0
		if day > 0 && previousValue != 0 {
			dailyReturn = (value - previousValue) / previousValue
		}
		cumulativeReturn := (value - in.Params.InitialInvestment) / in.Params.InitialInvestment

		points = append(points, PerformancePoint{
			Date:             date,
			Value:            value,
			DailyReturn:      dailyReturn,
			CumulativeReturn: cumulativeReturn,
		})
		previousValue = value
	}

	return points
}

// buyInitialShares converts the initial investment into share counts at the
// start date's resolved prices. An asset with no resolvable price holds zero
// shares and contributes nothing until rebalanced.
func buyInitialShares(in *NormalizedInput, start time.Time) map[string]float64 {
	shares := make(map[string]float64, len(in.Allocations))
	for _, alloc := range in.Allocations {
		price, ok := in.Series[alloc.AssetID].ResolveClose(start)
		if !ok || price <= 0 {
			continue
		}
		shares[alloc.AssetID] = alloc.Percentage / 100 * in.Params.InitialInvestment / price
	}
	return shares
}

func rebalance(shares map[string]float64, in *NormalizedInput, value float64, date time.Time) {
	for _, alloc := range in.Allocations {
		price, ok := in.Series[alloc.AssetID].ResolveClose(date)
		if !ok || price <= 0 {
			continue
		}
		shares[alloc.AssetID] = alloc.Percentage / 100 * value / price
	}
}

// portfolioValue sums holdings in allocation order. Map iteration order is
// randomized and float addition is not associative, so ranging over the shares
// map would make identical runs differ.
func portfolioValue(shares map[string]float64, in *NormalizedInput, date time.Time) float64 {
	total := 0.0
	for _, alloc := range in.Allocations {
		count, held := shares[alloc.AssetID]
		if !held {
			continue
		}
		price, ok := in.Series[alloc.AssetID].ResolveClose(date)
		if !ok {
			continue
		}
		total += count * price
	}
	return total
}

func daysBetween(start, end time.Time) int {
	return int(end.Sub(start).Hours() / 24)
}
