// Package logger provides run audit logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// RunLogger provides a dedicated audit trail for backtest and sync runs.
type RunLogger struct {
	*logrus.Entry
}

// NewRunLogger creates a new run audit logger.
func NewRunLogger(baseLogger *logrus.Logger) *RunLogger {
	return &RunLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogBacktestStarted logs the start of a backtest run.
func (rl *RunLogger) LogBacktestStarted(portfolioID, portfolioName string, startDate, endDate time.Time, initialInvestment float64, rebalanceFrequency string) {
	rl.WithFields(logrus.Fields{
		"portfolio_id":        portfolioID,
		"portfolio_name":      portfolioName,
		"start_date":          startDate.Format("2006-01-02"),
		"end_date":            endDate.Format("2006-01-02"),
		"initial_investment":  initialInvestment,
		"rebalance_frequency": rebalanceFrequency,
	}).Info("Backtest run started")
}

// LogBacktestCompleted logs a completed backtest run with its headline results.
func (rl *RunLogger) LogBacktestCompleted(portfolioID string, finalValue, totalReturn, maxDrawdown float64, durationSeconds float64) {
	rl.WithFields(logrus.Fields{
		"portfolio_id":     portfolioID,
		"final_value":      finalValue,
		"total_return":     totalReturn,
		"max_drawdown":     maxDrawdown,
		"duration_seconds": durationSeconds,
	}).Info("Backtest run completed")
}

// LogBacktestFailed logs a failed backtest run.
func (rl *RunLogger) LogBacktestFailed(portfolioID string, reason string) {
	rl.WithFields(logrus.Fields{
		"portfolio_id": portfolioID,
		"reason":       reason,
	}).Error("Backtest run failed")
}

// LogSyncCompleted logs a completed price sync run.
func (rl *RunLogger) LogSyncCompleted(symbols []string, rowsWritten int, quotaRemaining int, durationSeconds float64) {
	rl.WithFields(logrus.Fields{
		"symbols":          symbols,
		"rows_written":     rowsWritten,
		"quota_remaining":  quotaRemaining,
		"duration_seconds": durationSeconds,
	}).Info("Price sync completed")
}

// LogSyncFailed logs a failed price sync run.
func (rl *RunLogger) LogSyncFailed(symbol string, err error) {
	rl.WithFields(logrus.Fields{
		"symbol": symbol,
	}).WithError(err).Error("Price sync failed")
}
