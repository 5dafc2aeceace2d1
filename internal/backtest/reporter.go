package backtest

import (
	"fmt"
	"math"
	"strings"
)

// GenerateConsoleReport formats a backtest result for terminal output
func GenerateConsoleReport(result *Result) string {
	var builder strings.Builder
	m := result.Metrics
	builder.WriteString("Backtest Report\n")
	builder.WriteString("================\n")
	builder.WriteString(fmt.Sprintf("Portfolio: %s\n", result.PortfolioID))
	builder.WriteString(fmt.Sprintf("Period: %s to %s (%d days)\n",
		result.Params.StartDate.Format("2006-01-02"),
		result.Params.EndDate.Format("2006-01-02"),
		m.TotalDays))
	builder.WriteString(fmt.Sprintf("Initial Investment: %.2f\n", result.Params.InitialInvestment))
	builder.WriteString(fmt.Sprintf("Final Value: %.2f\n", m.FinalValue))
	builder.WriteString(fmt.Sprintf("Total Return: %.2f%%\n", m.TotalReturn*100))
	builder.WriteString(fmt.Sprintf("Annualized Return: %.2f%%\n", m.AnnualizedReturn*100))
	builder.WriteString(fmt.Sprintf("Volatility: %.2f%%\n", m.Volatility*100))
	builder.WriteString(fmt.Sprintf("Sharpe Ratio: %.2f\n", m.SharpeRatio))
	builder.WriteString(fmt.Sprintf("Sortino Ratio: %.2f\n", m.SortinoRatio))
	builder.WriteString(fmt.Sprintf("Calmar Ratio: %.2f\n", m.CalmarRatio))
	builder.WriteString(fmt.Sprintf("Max Drawdown: %.2f%%\n", m.MaxDrawdown*100))
	builder.WriteString(fmt.Sprintf("Win Rate: %.2f%%\n", m.WinRate*100))
	builder.WriteString(fmt.Sprintf("Positive/Negative Months: %d/%d\n", m.PositiveMonths, m.NegativeMonths))
	builder.WriteString(fmt.Sprintf("Gain/Loss Ratio: %s\n", formatRatio(float64(m.GainToLossRatio))))
	builder.WriteString(fmt.Sprintf("Uptime: %.2f%%\n", m.UptimePercentage*100))
	return builder.String()
}

func formatRatio(v float64) string {
	if math.IsInf(v, 1) {
		return "Inf"
	}
	return fmt.Sprintf("%.2f", v)
}
