package dataset

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
)

// FeatureRow carries the HAR building blocks for one trading day. RVDaily is
// the squared log return; weekly and monthly components are rolling means of
// it over trading days.
type FeatureRow struct {
	Date      time.Time
	Price     float64
	LogReturn float64
	RVDaily   float64
	RVWeekly  float64
	RVMonthly float64
}

// BuildFeatures computes log returns and the realized-volatility components
// from a clean price series. Warm-up rows where the monthly component is not
// yet defined are dropped, so the first emitted row is at index monthlyWindow
// of the input.
func BuildFeatures(clean []CleanRow, weeklyWindow, monthlyWindow int) ([]FeatureRow, error) {
	if weeklyWindow <= 0 || monthlyWindow <= 0 {
		return nil, fmt.Errorf("rolling windows must be positive (weekly=%d monthly=%d)", weeklyWindow, monthlyWindow)
	}
	if weeklyWindow > monthlyWindow {
		return nil, fmt.Errorf("weekly window %d exceeds monthly window %d", weeklyWindow, monthlyWindow)
	}
	if len(clean) < monthlyWindow+1 {
		return nil, fmt.Errorf("need at least %d rows to warm up rolling windows, got %d", monthlyWindow+1, len(clean))
	}

	n := len(clean)
	rvDaily := make([]float64, n) // index 0 undefined, returns start at row 1
	rvDaily[0] = math.NaN()
	for i := 1; i < n; i++ {
		prev, cur := clean[i-1].Price, clean[i].Price
		if prev <= 0 || cur <= 0 {
			rvDaily[i] = math.NaN()
			continue
		}
		r := math.Log(cur / prev)
		rvDaily[i] = r * r
	}

	out := make([]FeatureRow, 0, n-monthlyWindow)
	for i := monthlyWindow; i < n; i++ {
		weekly := rollingMean(rvDaily, i, weeklyWindow)
		monthly := rollingMean(rvDaily, i, monthlyWindow)
		if math.IsNaN(rvDaily[i]) || math.IsNaN(weekly) || math.IsNaN(monthly) {
			continue
		}
		prev := clean[i-1].Price
		out = append(out, FeatureRow{
			Date:      clean[i].Date,
			Price:     clean[i].Price,
			LogReturn: math.Log(clean[i].Price / prev),
			RVDaily:   rvDaily[i],
			RVWeekly:  weekly,
			RVMonthly: monthly,
		})
	}
	return out, nil
}

// WriteFeatures persists the realized-volatility series as CSV.
func WriteFeatures(path string, rows []FeatureRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Date", "Price", "LogReturn", "RV_Daily", "RV_Weekly", "RV_Monthly"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Date.Format("2006-01-02"),
			fmt.Sprintf("%g", r.Price),
			fmt.Sprintf("%g", r.LogReturn),
			fmt.Sprintf("%g", r.RVDaily),
			fmt.Sprintf("%g", r.RVWeekly),
			fmt.Sprintf("%g", r.RVMonthly),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// rollingMean averages values[i-window+1 .. i]; NaN when the window reaches
// into undefined territory.
func rollingMean(values []float64, i, window int) float64 {
	if i-window+1 < 0 {
		return math.NaN()
	}
	sum := 0.0
	for j := i - window + 1; j <= i; j++ {
		if math.IsNaN(values[j]) {
			return math.NaN()
		}
		sum += values[j]
	}
	return sum / float64(window)
}
