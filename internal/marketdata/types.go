package marketdata

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourusername/portfolio-backtester/internal/models"
)

// providerBar represents one daily bar as returned by the provider. Prices
// arrive as strings to avoid float precision loss on the wire.
type providerBar struct {
	Date  string `json:"date"`
	Close string `json:"close"`
}

// providerResponse is the provider's envelope for a daily history request
type providerResponse struct {
	Symbol string        `json:"symbol"`
	Bars   []providerBar `json:"bars"`
}

// toPriceSeries converts provider bars into an ordered price series. Bars with
// unparseable dates or non-positive closes are skipped.
func (r *providerResponse) toPriceSeries() (models.PriceSeries, error) {
	series := make(models.PriceSeries, 0, len(r.Bars))
	for _, bar := range r.Bars {
		date, err := time.Parse("2006-01-02", bar.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid bar date %q: %w", bar.Date, err)
		}

		closePrice, err := decimal.NewFromString(bar.Close)
		if err != nil {
			return nil, fmt.Errorf("invalid close price %q for %s: %w", bar.Close, bar.Date, err)
		}
		if !closePrice.IsPositive() {
			continue
		}

		series = append(series, models.PricePoint{
			Date:  date.UTC(),
			Close: closePrice.InexactFloat64(),
		})
	}

	series.Sort()
	return series, nil
}
