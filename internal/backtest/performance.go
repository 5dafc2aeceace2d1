package backtest

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// PerformancePoint represents one calendar day's portfolio value and returns
type PerformancePoint struct {
	Date             time.Time `json:"date"`
	Value            float64   `json:"value"`
	DailyReturn      float64   `json:"daily_return"`
	CumulativeReturn float64   `json:"cumulative_return"`
}

// PerformanceSeries is the daily portfolio value series emitted by the
// simulator, one point per calendar day in the requested range inclusive.
type PerformanceSeries []PerformancePoint

// DailyReturns returns the day-over-day returns, excluding the first day
// (which has no prior value and carries a return of zero by convention).
func (s PerformanceSeries) DailyReturns() []float64 {
	if len(s) < 2 {
		return []float64{}
	}
	returns := make([]float64, 0, len(s)-1)
	for i := 1; i < len(s); i++ {
		returns = append(returns, s[i].DailyReturn)
	}
	return returns
}

// FinalValue returns the last portfolio value in the series
func (s PerformanceSeries) FinalValue() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].Value
}

// ToCSV exports the series to a CSV string
func (s PerformanceSeries) ToCSV() string {
	var buf bytes.Buffer
	buf.WriteString("date,value,daily_return,cumulative_return\n")
	for _, point := range s {
		buf.WriteString(point.Date.Format("2006-01-02"))
		buf.WriteString(",")
		buf.WriteString(formatFloat(point.Value))
		buf.WriteString(",")
		buf.WriteString(formatFloat(point.DailyReturn))
		buf.WriteString(",")
		buf.WriteString(formatFloat(point.CumulativeReturn))
		buf.WriteString("\n")
	}
	return buf.String()
}

// ToJSON exports the series to a JSON string
func (s PerformanceSeries) ToJSON() string {
	data, _ := json.Marshal(s)
	return string(data)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
