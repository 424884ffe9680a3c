package dataset

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cleanSeries(prices []float64) []CleanRow {
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]CleanRow, len(prices))
	for i, p := range prices {
		rows[i] = CleanRow{Date: base.AddDate(0, 0, i), Price: p}
	}
	return rows
}

func TestBuildFeaturesRealizedVolatility(t *testing.T) {
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 100 * math.Pow(1.01, float64(i)) // constant 1% log-ish step
	}
	rows, err := BuildFeatures(cleanSeries(prices), 5, 22)
	require.NoError(t, err)
	require.Len(t, rows, 30-22, "warm-up rows are dropped")

	r := math.Log(1.01)
	for _, row := range rows {
		assert.InDelta(t, r*r, row.RVDaily, 1e-12)
		assert.InDelta(t, r*r, row.RVWeekly, 1e-12)
		assert.InDelta(t, r*r, row.RVMonthly, 1e-12)
		assert.InDelta(t, r, row.LogReturn, 1e-12)
	}
}

func TestBuildFeaturesRollingMeans(t *testing.T) {
	// Alternate 2% and 0% moves so weekly and monthly components separate
	// from the daily one.
	prices := make([]float64, 40)
	prices[0] = 100
	for i := 1; i < len(prices); i++ {
		if i%2 == 0 {
			prices[i] = prices[i-1] * 1.02
		} else {
			prices[i] = prices[i-1]
		}
	}
	rows, err := BuildFeatures(cleanSeries(prices), 5, 22)
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	r2 := math.Log(1.02) * math.Log(1.02)
	for _, row := range rows {
		assert.True(t, row.RVDaily == 0 || math.Abs(row.RVDaily-r2) < 1e-12)
		// A 5-day window holds 2 or 3 of the alternating moves.
		assert.InDelta(t, r2/2, row.RVWeekly, r2/8)
		assert.InDelta(t, r2*11/22, row.RVMonthly, 1e-12)
	}
}

func TestBuildFeaturesRejectsShortSeries(t *testing.T) {
	_, err := BuildFeatures(cleanSeries([]float64{100, 101}), 5, 22)
	assert.Error(t, err)
}

func TestBuildFeaturesRejectsBadWindows(t *testing.T) {
	prices := make([]float64, 40)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	_, err := BuildFeatures(cleanSeries(prices), 22, 5)
	assert.Error(t, err)
	_, err = BuildFeatures(cleanSeries(prices), 0, 22)
	assert.Error(t, err)
}

func TestBuildFeaturesSkipsNonPositivePrices(t *testing.T) {
	prices := make([]float64, 80)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	prices[25] = 0 // bad tick: its return and the next are undefined

	rows, err := BuildFeatures(cleanSeries(prices), 5, 22)
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	for _, row := range rows {
		assert.False(t, math.IsNaN(row.RVDaily))
		assert.False(t, math.IsNaN(row.RVWeekly))
		assert.False(t, math.IsNaN(row.RVMonthly))
	}
}
