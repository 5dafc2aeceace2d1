package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/yourusername/portfolio-backtester/internal/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func mustNormalize(t *testing.T, allocations []models.Allocation, series map[string]models.PriceSeries, params RunParams) *NormalizedInput {
	t.Helper()
	in, err := NormalizeInput(allocations, series, params)
	if err != nil {
		t.Fatalf("failed to normalize input: %v", err)
	}
	return in
}

func TestSimulateFlatPrices(t *testing.T) {
	start := testDate(2023, time.January, 1)
	allocations := []models.Allocation{{AssetID: "VTI", Percentage: 100}}
	series := map[string]models.PriceSeries{
		"VTI": constantSeries(start, 10, 50),
	}
	params := RunParams{
		StartDate:          start,
		EndDate:            start.AddDate(0, 0, 9),
		InitialInvestment:  1000,
		RebalanceFrequency: RebalanceNever,
	}

	points := Simulate(mustNormalize(t, allocations, series, params))

	if len(points) != 10 {
		t.Fatalf("expected 10 points, got %d", len(points))
	}
	for i, p := range points {
		if !almostEqual(p.Value, 1000) {
			t.Errorf("day %d: expected value 1000, got %f", i, p.Value)
		}
		if !almostEqual(p.DailyReturn, 0) {
			t.Errorf("day %d: expected zero daily return, got %f", i, p.DailyReturn)
		}
		if !almostEqual(p.CumulativeReturn, 0) {
			t.Errorf("day %d: expected zero cumulative return, got %f", i, p.CumulativeReturn)
		}
	}
}

func TestSimulateKnownValues(t *testing.T) {
	start := testDate(2023, time.January, 1)
	closes := []float64{100, 110, 90, 120}
	series := models.PriceSeries{}
	for i, c := range closes {
		series = append(series, models.PricePoint{Date: start.AddDate(0, 0, i), Close: c})
	}

	allocations := []models.Allocation{{AssetID: "VTI", Percentage: 100}}
	params := RunParams{
		StartDate:          start,
		EndDate:            start.AddDate(0, 0, 3),
		InitialInvestment:  1000,
		RebalanceFrequency: RebalanceNever,
	}

	points := Simulate(mustNormalize(t, allocations, series2map("VTI", series), params))

	wantValues := []float64{1000, 1100, 900, 1200}
	if len(points) != len(wantValues) {
		t.Fatalf("expected %d points, got %d", len(wantValues), len(points))
	}
	for i, want := range wantValues {
		if !almostEqual(points[i].Value, want) {
			t.Errorf("day %d: expected value %f, got %f", i, want, points[i].Value)
		}
	}

	if !almostEqual(points[0].DailyReturn, 0) {
		t.Errorf("first day must have zero return, got %f", points[0].DailyReturn)
	}
	if !almostEqual(points[1].DailyReturn, 0.1) {
		t.Errorf("day 1: expected return 0.1, got %f", points[1].DailyReturn)
	}
	if !almostEqual(points[2].DailyReturn, (900.0-1100.0)/1100.0) {
		t.Errorf("day 2: expected return %f, got %f", (900.0-1100.0)/1100.0, points[2].DailyReturn)
	}
	if !almostEqual(points[3].CumulativeReturn, 0.2) {
		t.Errorf("day 3: expected cumulative return 0.2, got %f", points[3].CumulativeReturn)
	}
}

func TestSimulateCarriesForwardMissingPrices(t *testing.T) {
	start := testDate(2023, time.January, 1)
	// Prices stop after day 4; the remaining 10 days carry the last close.
	series := models.PriceSeries{}
	for i := 0; i < 5; i++ {
		series = append(series, models.PricePoint{Date: start.AddDate(0, 0, i), Close: 100 + float64(i)})
	}

	allocations := []models.Allocation{{AssetID: "VTI", Percentage: 100}}
	params := RunParams{
		StartDate:          start,
		EndDate:            start.AddDate(0, 0, 14),
		InitialInvestment:  1000,
		RebalanceFrequency: RebalanceNever,
	}

	points := Simulate(mustNormalize(t, allocations, series2map("VTI", series), params))

	if len(points) != 15 {
		t.Fatalf("expected 15 points, got %d", len(points))
	}
	finalWant := 1000.0 / 100.0 * 104.0
	for day := 5; day < 15; day++ {
		if !almostEqual(points[day].Value, finalWant) {
			t.Errorf("day %d: expected carried-forward value %f, got %f", day, finalWant, points[day].Value)
		}
		if !almostEqual(points[day].DailyReturn, 0) {
			t.Errorf("day %d: expected zero return on carried price, got %f", day, points[day].DailyReturn)
		}
	}
}

func TestSimulateInitialWeights(t *testing.T) {
	start := testDate(2023, time.January, 1)
	allocations := []models.Allocation{
		{AssetID: "VTI", Percentage: 60},
		{AssetID: "BND", Percentage: 40},
	}
	series := map[string]models.PriceSeries{
		"VTI": constantSeries(start, 10, 123.45),
		"BND": constantSeries(start, 10, 67.89),
	}
	params := RunParams{
		StartDate:          start,
		EndDate:            start.AddDate(0, 0, 9),
		InitialInvestment:  1000,
		RebalanceFrequency: RebalanceNever,
	}

	in := mustNormalize(t, allocations, series, params)
	points := Simulate(in)

	if !almostEqual(points[0].Value, 1000) {
		t.Errorf("initial holdings should round-trip to the investment, got %f", points[0].Value)
	}
}

func TestSimulateMonthlyRebalance(t *testing.T) {
	start := testDate(2023, time.January, 1)
	days := 36

	flat := constantSeries(start, days, 100)
	rising := models.PriceSeries{}
	for i := 0; i < days; i++ {
		rising = append(rising, models.PricePoint{Date: start.AddDate(0, 0, i), Close: 100 + float64(i)*2})
	}

	allocations := []models.Allocation{
		{AssetID: "FLAT", Percentage: 50},
		{AssetID: "RISE", Percentage: 50},
	}
	series := map[string]models.PriceSeries{"FLAT": flat, "RISE": rising}
	params := RunParams{
		StartDate:          start,
		EndDate:            start.AddDate(0, 0, days-1),
		InitialInvestment:  1000,
		RebalanceFrequency: RebalanceMonthly,
	}

	points := Simulate(mustNormalize(t, allocations, series, params))

	// Day 30: rebalance happens at that day's prices, so the value itself is
	// unchanged: 5*100 + 5*160 = 1300.
	if !almostEqual(points[30].Value, 1300) {
		t.Errorf("day 30: expected value 1300, got %f", points[30].Value)
	}

	// Day 31 reflects the rebalanced holdings: 6.5 flat shares and
	// 4.0625 rising shares at price 162.
	want := 6.5*100 + 4.0625*162
	if !almostEqual(points[31].Value, want) {
		t.Errorf("day 31: expected rebalanced value %f, got %f", want, points[31].Value)
	}
}

func TestSimulateNeverRebalanceDrifts(t *testing.T) {
	start := testDate(2023, time.January, 1)
	days := 36

	flat := constantSeries(start, days, 100)
	rising := models.PriceSeries{}
	for i := 0; i < days; i++ {
		rising = append(rising, models.PricePoint{Date: start.AddDate(0, 0, i), Close: 100 + float64(i)*2})
	}

	allocations := []models.Allocation{
		{AssetID: "FLAT", Percentage: 50},
		{AssetID: "RISE", Percentage: 50},
	}
	series := map[string]models.PriceSeries{"FLAT": flat, "RISE": rising}
	params := RunParams{
		StartDate:          start,
		EndDate:            start.AddDate(0, 0, days-1),
		InitialInvestment:  1000,
		RebalanceFrequency: RebalanceNever,
	}

	points := Simulate(mustNormalize(t, allocations, series, params))

	// Without rebalancing the original 5+5 shares are held throughout.
	want := 5*100.0 + 5*162.0
	if !almostEqual(points[31].Value, want) {
		t.Errorf("day 31: expected drifted value %f, got %f", want, points[31].Value)
	}
}

func TestSimulateDeterministic(t *testing.T) {
	start := testDate(2023, time.January, 1)
	// Three or more assets: with only two, float addition is commutative and
	// an unstable summation order would go unnoticed.
	allocations := []models.Allocation{
		{AssetID: "VTI", Percentage: 60},
		{AssetID: "BND", Percentage: 30},
		{AssetID: "GLD", Percentage: 10},
	}
	rising := models.PriceSeries{}
	for i := 0; i < 90; i++ {
		rising = append(rising, models.PricePoint{Date: start.AddDate(0, 0, i), Close: 100 + float64(i%7)})
	}
	series := map[string]models.PriceSeries{
		"VTI": rising,
		"BND": constantSeries(start, 90, 80),
		"GLD": constantSeries(start, 90, 173.21),
	}
	params := RunParams{
		StartDate:          start,
		EndDate:            start.AddDate(0, 0, 89),
		InitialInvestment:  25000,
		RebalanceFrequency: RebalanceMonthly,
	}

	for run := 0; run < 5; run++ {
		first := Simulate(mustNormalize(t, allocations, series, params))
		second := Simulate(mustNormalize(t, allocations, series, params))

		if first.ToJSON() != second.ToJSON() {
			t.Fatalf("run %d: identical inputs must produce identical output", run)
		}
	}
}

func TestSimulateThreeAssetFlatFullSeries(t *testing.T) {
	start := testDate(2023, time.January, 1)
	days := 60
	allocations := []models.Allocation{
		{AssetID: "CASH", Percentage: 10},
		{AssetID: "BND", Percentage: 20},
		{AssetID: "VTI", Percentage: 70},
	}
	series := map[string]models.PriceSeries{
		"CASH": constantSeries(start, days, 1),
		"BND":  constantSeries(start, days, 50),
		"VTI":  constantSeries(start, days, 200),
	}
	params := RunParams{
		StartDate:          start,
		EndDate:            start.AddDate(0, 0, days-1),
		InitialInvestment:  1000,
		RebalanceFrequency: RebalanceMonthly,
	}

	points := Simulate(mustNormalize(t, allocations, series, params))

	if len(points) != days {
		t.Fatalf("expected %d points, got %d", days, len(points))
	}
	for i, p := range points {
		if !almostEqual(p.Value, 1000) {
			t.Errorf("day %d: expected value 1000, got %f", i, p.Value)
		}
		if !almostEqual(p.DailyReturn, 0) {
			t.Errorf("day %d: flat prices must not produce return jitter, got %g", i, p.DailyReturn)
		}
		if !almostEqual(p.CumulativeReturn, 0) {
			t.Errorf("day %d: expected zero cumulative return, got %g", i, p.CumulativeReturn)
		}
	}
}

func TestSimulateQuarterlyRebalance(t *testing.T) {
	start := testDate(2023, time.January, 1)
	days := 100

	flat := constantSeries(start, days, 100)
	rising := models.PriceSeries{}
	for i := 0; i < days; i++ {
		rising = append(rising, models.PricePoint{Date: start.AddDate(0, 0, i), Close: 100 + float64(i)})
	}

	allocations := []models.Allocation{
		{AssetID: "FLAT", Percentage: 50},
		{AssetID: "RISE", Percentage: 50},
	}
	series := map[string]models.PriceSeries{"FLAT": flat, "RISE": rising}
	params := RunParams{
		StartDate:          start,
		EndDate:            start.AddDate(0, 0, days-1),
		InitialInvestment:  1000,
		RebalanceFrequency: RebalanceQuarterly,
	}

	points := Simulate(mustNormalize(t, allocations, series, params))

	// Day 89 still holds the original 5+5 shares; the first rebalance fires
	// on day 90 at that day's prices, leaving the value itself unchanged.
	if want := 5*100.0 + 5*189.0; !almostEqual(points[89].Value, want) {
		t.Errorf("day 89: expected drifted value %f, got %f", want, points[89].Value)
	}
	if want := 5*100.0 + 5*190.0; !almostEqual(points[90].Value, want) {
		t.Errorf("day 90: expected pre-rebalance value %f, got %f", want, points[90].Value)
	}

	// Day 91 reflects the day-90 rebalance: half of 1450 in each asset.
	want := 725.0 + 725.0/190.0*191.0
	if !almostEqual(points[91].Value, want) {
		t.Errorf("day 91: expected rebalanced value %f, got %f", want, points[91].Value)
	}
}

func TestSimulateAnnualRebalance(t *testing.T) {
	start := testDate(2023, time.January, 1)
	days := 370

	flat := constantSeries(start, days, 100)
	rising := models.PriceSeries{}
	for i := 0; i < days; i++ {
		rising = append(rising, models.PricePoint{Date: start.AddDate(0, 0, i), Close: 100 + float64(i)})
	}

	allocations := []models.Allocation{
		{AssetID: "FLAT", Percentage: 50},
		{AssetID: "RISE", Percentage: 50},
	}
	series := map[string]models.PriceSeries{"FLAT": flat, "RISE": rising}
	params := RunParams{
		StartDate:          start,
		EndDate:            start.AddDate(0, 0, days-1),
		InitialInvestment:  1000,
		RebalanceFrequency: RebalanceAnnually,
	}

	points := Simulate(mustNormalize(t, allocations, series, params))

	// Holdings drift unrebalanced through day 364 and reset on day 365.
	if want := 5*100.0 + 5*464.0; !almostEqual(points[364].Value, want) {
		t.Errorf("day 364: expected drifted value %f, got %f", want, points[364].Value)
	}
	if want := 5*100.0 + 5*465.0; !almostEqual(points[365].Value, want) {
		t.Errorf("day 365: expected pre-rebalance value %f, got %f", want, points[365].Value)
	}

	want := 1412.5 + 1412.5/465.0*466.0
	if !almostEqual(points[366].Value, want) {
		t.Errorf("day 366: expected rebalanced value %f, got %f", want, points[366].Value)
	}
}

func TestSimulateMonthlyRebalanceRestoresWeights(t *testing.T) {
	start := testDate(2023, time.January, 1)
	days := 400

	flat := constantSeries(start, days, 100)
	rising := models.PriceSeries{}
	for i := 0; i < days; i++ {
		rising = append(rising, models.PricePoint{Date: start.AddDate(0, 0, i), Close: 100 + float64(i)*2})
	}

	allocations := []models.Allocation{
		{AssetID: "FLAT", Percentage: 60},
		{AssetID: "RISE", Percentage: 40},
	}
	series := map[string]models.PriceSeries{"FLAT": flat, "RISE": rising}
	params := RunParams{
		StartDate:          start,
		EndDate:            start.AddDate(0, 0, days-1),
		InitialInvestment:  10000,
		RebalanceFrequency: RebalanceMonthly,
	}

	points := Simulate(mustNormalize(t, allocations, series, params))

	// After each 30-day rebalance the holdings are back at 60/40, so the next
	// day's value follows from those target weights and the price moves.
	price := func(day int) float64 { return 100 + float64(day)*2 }
	for day := 30; day < days-1; day += 30 {
		rebalanced := points[day].Value
		want := 0.6*rebalanced + 0.4*rebalanced*price(day+1)/price(day)
		got := points[day+1].Value
		if math.Abs(got-want)/want > 1e-12 {
			t.Errorf("day %d: expected post-rebalance value %f, got %f", day+1, want, got)
		}
	}
}

func series2map(assetID string, series models.PriceSeries) map[string]models.PriceSeries {
	return map[string]models.PriceSeries{assetID: series}
}
