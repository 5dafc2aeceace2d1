package models

import (
	"sort"
	"time"
)

// PricePoint represents one daily close observation for an asset
type PricePoint struct {
	Date  time.Time `db:"date" json:"date"`
	Close float64   `db:"close_price" json:"close_price"`
}

// PriceSeries is an ordered (by date, ascending) sequence of daily closes.
// Dates need not be contiguous: weekends, holidays and vendor gaps are absent.
type PriceSeries []PricePoint

// Sort orders the series by date ascending
func (s PriceSeries) Sort() {
	sort.Slice(s, func(i, j int) bool {
		return s[i].Date.Before(s[j].Date)
	})
}

// ResolveClose resolves a close price for the given date. It returns the exact
// match if present, otherwise the most recent earlier observation, otherwise
// (only when no earlier data exists) the nearest later one. The boolean is
// false only for an empty series.
func (s PriceSeries) ResolveClose(date time.Time) (float64, bool) {
	if len(s) == 0 {
		return 0, false
	}
	// Index of the first observation after date.
	idx := sort.Search(len(s), func(i int) bool {
		return s[i].Date.After(date)
	})
	if idx > 0 {
		return s[idx-1].Close, true
	}
	return s[0].Close, true
}

// FirstDate returns the earliest observation date in the series
func (s PriceSeries) FirstDate() (time.Time, bool) {
	if len(s) == 0 {
		return time.Time{}, false
	}
	return s[0].Date, true
}

// LastDate returns the latest observation date in the series
func (s PriceSeries) LastDate() (time.Time, bool) {
	if len(s) == 0 {
		return time.Time{}, false
	}
	return s[len(s)-1].Date, true
}
