package backtest

import (
	"encoding/json"
	"math"
	"time"
)

// riskFreeRate is the fixed annual risk-free rate used for Sharpe and Sortino
const riskFreeRate = 0.02

// tradingDaysPerYear is the annualization factor applied to daily volatility.
// The series is sampled on calendar days, so this is an intentional
// simplification rather than a statistically pure annualization.
const tradingDaysPerYear = 252

// Ratio is a float64 that marshals IEEE infinities as strings, so metric
// payloads containing them survive encoding/json.
type Ratio float64

// MarshalJSON implements json.Marshaler
func (r Ratio) MarshalJSON() ([]byte, error) {
	v := float64(r)
	if math.IsInf(v, 1) {
		return []byte(`"Infinity"`), nil
	}
	if math.IsInf(v, -1) {
		return []byte(`"-Infinity"`), nil
	}
	return json.Marshal(v)
}

// UnmarshalJSON implements json.Unmarshaler
func (r *Ratio) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"Infinity"`:
		*r = Ratio(math.Inf(1))
		return nil
	case `"-Infinity"`:
		*r = Ratio(math.Inf(-1))
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = Ratio(v)
	return nil
}

// DrawdownPeriod represents one peak-to-recovery (or still open) decline
type DrawdownPeriod struct {
	StartDate          time.Time  `json:"start_date"`
	EndDate            time.Time  `json:"end_date"`
	PeakValue          float64    `json:"peak_value"`
	TroughValue        float64    `json:"trough_value"`
	DrawdownPercentage float64    `json:"drawdown_percentage"`
	DurationDays       int        `json:"duration_days"`
	Recovered          bool       `json:"recovered"`
	RecoveryDate       *time.Time `json:"recovery_date,omitempty"`
}

// MonthlyReturn represents one calendar month touched by the series. The
// first month has return 0 by convention since there is no prior month
// boundary to measure against.
type MonthlyReturn struct {
	Year        int     `json:"year"`
	Month       int     `json:"month"`
	Return      float64 `json:"return"`
	Value       float64 `json:"value"`
	DaysInMonth int     `json:"days_in_month"`
}

// YearlyReturn represents one calendar year touched by the series
type YearlyReturn struct {
	Year   int     `json:"year"`
	Return float64 `json:"return"`
	Value  float64 `json:"value"`
}

// MonthSummary identifies the best or worst month of a run. Date is an
// approximate index into the performance series proportional to the month's
// position among all months, kept for output compatibility with existing
// consumers; it is not the month's actual calendar date.
type MonthSummary struct {
	Date   time.Time `json:"date"`
	Return float64   `json:"return"`
}

// Metrics represents derived risk/return statistics for one backtest run
type Metrics struct {
	TotalReturn      float64          `json:"total_return"`
	AnnualizedReturn float64          `json:"annualized_return"`
	Volatility       float64          `json:"volatility"`
	SharpeRatio      float64          `json:"sharpe_ratio"`
	SortinoRatio     float64          `json:"sortino_ratio"`
	CalmarRatio      float64          `json:"calmar_ratio"`
	MaxDrawdown      float64          `json:"max_drawdown"`
	DrawdownPeriods  []DrawdownPeriod `json:"drawdown_periods"`
	MonthlyReturns   []MonthlyReturn  `json:"monthly_returns"`
	YearlyReturns    []YearlyReturn   `json:"yearly_returns"`
	PositiveMonths   int              `json:"positive_months"`
	NegativeMonths   int              `json:"negative_months"`
	WinRate          float64          `json:"win_rate"`
	BestMonth        MonthSummary     `json:"best_month"`
	WorstMonth       MonthSummary     `json:"worst_month"`
	GainToLossRatio  Ratio            `json:"gain_to_loss_ratio"`
	UptimePercentage float64          `json:"uptime_percentage"`
	FinalValue       float64          `json:"final_value"`
	TotalDays        int              `json:"total_days"`
}

// CalculateMetrics derives summary statistics from a performance series. It is
// a pure function: degenerate inputs (empty series, zero volatility, no
// months) degrade to neutral zero values rather than failing.
func CalculateMetrics(points PerformanceSeries, initialInvestment float64) Metrics {
	metrics := Metrics{TotalDays: len(points)}
	if len(points) == 0 || initialInvestment <= 0 {
		return metrics
	}

	final := points.FinalValue()
	metrics.FinalValue = final
	metrics.TotalReturn = (final - initialInvestment) / initialInvestment
	metrics.AnnualizedReturn = annualizeReturn(metrics.TotalReturn, len(points))

	returns := points.DailyReturns()
	metrics.Volatility = stddev(returns) * math.Sqrt(tradingDaysPerYear)
	metrics.SharpeRatio = calculateSharpeRatio(metrics.AnnualizedReturn, metrics.Volatility)
	metrics.SortinoRatio = calculateSortinoRatio(metrics.AnnualizedReturn, returns)

	metrics.MaxDrawdown = calculateMaxDrawdown(points)
	metrics.CalmarRatio = calculateCalmarRatio(metrics.AnnualizedReturn, metrics.MaxDrawdown)
	metrics.DrawdownPeriods = findDrawdownPeriods(points)

	metrics.MonthlyReturns = calculateMonthlyReturns(points)
	metrics.YearlyReturns = calculateYearlyReturns(points)
	metrics.PositiveMonths, metrics.NegativeMonths = countSignedMonths(metrics.MonthlyReturns)
	if len(metrics.MonthlyReturns) > 0 {
		metrics.WinRate = float64(metrics.PositiveMonths) / float64(len(metrics.MonthlyReturns))
	}
	metrics.BestMonth, metrics.WorstMonth = findExtremeMonths(points, metrics.MonthlyReturns)

	metrics.GainToLossRatio = calculateGainToLossRatio(returns)
	metrics.UptimePercentage = calculateUptime(points)

	return metrics
}

// annualizeReturn converts a total return over totalDays calendar days to an
// annual rate using a 365-day year.
func annualizeReturn(totalReturn float64, totalDays int) float64 {
	if totalDays <= 0 {
		return 0
	}
	return math.Pow(1+totalReturn, 365.0/float64(totalDays)) - 1
}

func calculateSharpeRatio(annualizedReturn, volatility float64) float64 {
	if volatility == 0 {
		return 0
	}
	return (annualizedReturn - riskFreeRate) / volatility
}

func calculateSortinoRatio(annualizedReturn float64, returns []float64) float64 {
	downside := downsideDeviation(returns) * math.Sqrt(tradingDaysPerYear)
	if downside == 0 {
		return 0
	}
	return (annualizedReturn - riskFreeRate) / downside
}

func calculateCalmarRatio(annualizedReturn, maxDrawdown float64) float64 {
	if maxDrawdown == 0 {
		return 0
	}
	return math.Abs(annualizedReturn / maxDrawdown)
}

// calculateMaxDrawdown tracks the highest value seen so far and returns the
// largest peak-to-value decline as a ratio in [0, 1].
func calculateMaxDrawdown(points PerformanceSeries) float64 {
	maxDD := 0.0
	peak := 0.0
	for _, p := range points {
		if p.Value > peak {
			peak = p.Value
		}
		if peak == 0 {
			continue
		}
		drawdown := (peak - p.Value) / peak
		if drawdown > maxDD {
			maxDD = drawdown
		}
	}
	return maxDD
}

// findDrawdownPeriods scans the series once. A period opens when the value
// first drops below the running peak and closes when a new all-time peak is
// reached; a period still open at series end is emitted with Recovered=false
// and no recovery date. The period start is the date of the peak the decline
// fell from.
func findDrawdownPeriods(points PerformanceSeries) []DrawdownPeriod {
	if len(points) == 0 {
		return nil
	}

	var periods []DrawdownPeriod
	var open *DrawdownPeriod
	peak := points[0].Value
	peakDate := points[0].Date

	for _, p := range points[1:] {
		if p.Value >= peak {
			if open != nil {
				recovery := p.Date
				open.EndDate = p.Date
				open.Recovered = true
				open.RecoveryDate = &recovery
				open.DurationDays = daysBetween(open.StartDate, open.EndDate)
				periods = append(periods, *open)
				open = nil
			}
			peak = p.Value
			peakDate = p.Date
			continue
		}

		if open == nil {
			open = &DrawdownPeriod{
				StartDate:   peakDate,
				PeakValue:   peak,
				TroughValue: p.Value,
			}
		}
		if p.Value < open.TroughValue {
			open.TroughValue = p.Value
		}
		open.DrawdownPercentage = (open.PeakValue - open.TroughValue) / open.PeakValue
	}

	if open != nil {
		last := points[len(points)-1]
		open.EndDate = last.Date
		open.DurationDays = daysBetween(open.StartDate, open.EndDate)
		periods = append(periods, *open)
	}

	return periods
}

// calculateMonthlyReturns groups points by calendar month in series order.
// Each month's return compares its last value against the prior month's last
// value; the first month has no prior boundary and is assigned return 0.
func calculateMonthlyReturns(points PerformanceSeries) []MonthlyReturn {
	var months []MonthlyReturn

	for _, p := range points {
		year, month := p.Date.Year(), int(p.Date.Month())
		if n := len(months); n > 0 && months[n-1].Year == year && months[n-1].Month == month {
			months[n-1].Value = p.Value
			months[n-1].DaysInMonth++
			continue
		}
		months = append(months, MonthlyReturn{
			Year:        year,
			Month:       month,
			Value:       p.Value,
			DaysInMonth: 1,
		})
	}

	// Returns are computed after grouping so each month compares against the
	// prior month's final value, not an intermediate one.
	for i := 1; i < len(months); i++ {
		prior := months[i-1].Value
		if prior != 0 {
			months[i].Return = (months[i].Value - prior) / prior
		}
	}

	return months
}

// calculateYearlyReturns applies the monthly grouping logic per calendar year
func calculateYearlyReturns(points PerformanceSeries) []YearlyReturn {
	var years []YearlyReturn

	for _, p := range points {
		year := p.Date.Year()
		if n := len(years); n > 0 && years[n-1].Year == year {
			years[n-1].Value = p.Value
			continue
		}
		years = append(years, YearlyReturn{Year: year, Value: p.Value})
	}

	for i := 1; i < len(years); i++ {
		prior := years[i-1].Value
		if prior != 0 {
			years[i].Return = (years[i].Value - prior) / prior
		}
	}

	return years
}

func countSignedMonths(months []MonthlyReturn) (positive, negative int) {
	for _, m := range months {
		if m.Return > 0 {
			positive++
		} else if m.Return < 0 {
			negative++
		}
	}
	return positive, negative
}

// findExtremeMonths locates the months with the maximum and minimum return
func findExtremeMonths(points PerformanceSeries, months []MonthlyReturn) (best, worst MonthSummary) {
	if len(months) == 0 || len(points) == 0 {
		return best, worst
	}

	bestIdx, worstIdx := 0, 0
	for i, m := range months {
		if m.Return > months[bestIdx].Return {
			bestIdx = i
		}
		if m.Return < months[worstIdx].Return {
			worstIdx = i
		}
	}

	best = MonthSummary{
		Date:   approximateMonthDate(points, bestIdx, len(months)),
		Return: months[bestIdx].Return,
	}
	worst = MonthSummary{
		Date:   approximateMonthDate(points, worstIdx, len(months)),
		Return: months[worstIdx].Return,
	}
	return best, worst
}

func approximateMonthDate(points PerformanceSeries, monthIdx, totalMonths int) time.Time {
	idx := monthIdx * len(points) / totalMonths
	if idx >= len(points) {
		idx = len(points) - 1
	}
	return points[idx].Date
}

// calculateGainToLossRatio divides the average positive daily return by the
// average absolute negative daily return. With gains and no losses the ratio
// is +Inf; with no gains it is 0.
func calculateGainToLossRatio(returns []float64) Ratio {
	gainSum, lossSum := 0.0, 0.0
	gains, losses := 0, 0
	for _, r := range returns {
		if r > 0 {
			gainSum += r
			gains++
		} else if r < 0 {
			lossSum += math.Abs(r)
			losses++
		}
	}
	if gains == 0 {
		return 0
	}
	if losses == 0 {
		return Ratio(math.Inf(1))
	}
	avgGain := gainSum / float64(gains)
	avgLoss := lossSum / float64(losses)
	return Ratio(avgGain / avgLoss)
}

// calculateUptime returns the fraction of days with a positive daily return
func calculateUptime(points PerformanceSeries) float64 {
	if len(points) == 0 {
		return 0
	}
	positive := 0
	for _, p := range points {
		if p.DailyReturn > 0 {
			positive++
		}
	}
	return float64(positive) / float64(len(points))
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	return mean / float64(len(values))
}

// stddev is the population standard deviation, not the sample one
func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := average(values)
	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

func downsideDeviation(values []float64) float64 {
	negatives := make([]float64, 0)
	for _, v := range values {
		if v < 0 {
			negatives = append(negatives, v)
		}
	}
	return stddev(negatives)
}
