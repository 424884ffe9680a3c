package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tradingFeatures builds feature rows on the given day offsets, so gaps mimic
// weekends and holidays.
func tradingFeatures(dayOffsets []int) []FeatureRow {
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]FeatureRow, len(dayOffsets))
	for i, off := range dayOffsets {
		rows[i] = FeatureRow{
			Date:      base.AddDate(0, 0, off),
			Price:     100 + float64(off),
			LogReturn: 0.01,
			RVDaily:   float64(i + 1), // distinct per trading row
			RVWeekly:  0.5,
			RVMonthly: 0.25,
		}
	}
	return rows
}

// calendarPanel carries one column whose value equals the calendar day offset.
func calendarPanel(nDays int) *Panel {
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	dates := make([]time.Time, nDays)
	col := make([]float64, nDays)
	for i := range dates {
		dates[i] = base.AddDate(0, 0, i)
		col[i] = float64(i)
	}
	return &Panel{Dates: dates, Columns: map[string][]float64{"log_fatal": col}}
}

func TestAssembleLagsByTradingDay(t *testing.T) {
	// Trading days 0,1 then a two-day gap, then 4,5,6.
	features := tradingFeatures([]int{0, 1, 4, 5, 6})
	panel := calendarPanel(10)

	ds, err := NewAssembler(testLogger(t)).Assemble(features, panel, AssembleParams{
		Commodity:    "gold",
		ProxyTag:     "global",
		ProxyColumns: []string{"log_fatal"},
		Lags:         []int{1},
		Horizon:      1,
	})
	require.NoError(t, err)
	require.Len(t, ds.ConflictColumns, 1)
	assert.Equal(t, "global__log_fatal_lag1", ds.ConflictColumns[0])

	// Rows run from maxLag to n-h: trading rows 1..3.
	require.Len(t, ds.Rows, 3)

	// The row on calendar day 4 must carry day 1's panel value, the previous
	// trading day, not calendar day 3.
	row := ds.Rows[1]
	assert.Equal(t, time.Date(2020, 1, 5, 0, 0, 0, 0, time.UTC), row.Date)
	assert.Equal(t, 1.0, row.Conflict["global__log_fatal_lag1"])
}

func TestAssembleForwardTarget(t *testing.T) {
	features := tradingFeatures([]int{0, 1, 2, 3, 4, 5})
	panel := calendarPanel(10)

	for _, h := range []int{1, 2} {
		ds, err := NewAssembler(testLogger(t)).Assemble(features, panel, AssembleParams{
			Commodity:    "gold",
			ProxyTag:     "global",
			ProxyColumns: []string{"log_fatal"},
			Lags:         []int{1},
			Horizon:      h,
		})
		require.NoError(t, err)

		for i, row := range ds.Rows {
			// RVDaily was set to the trading-row index + 1, so the target h
			// rows ahead is simply shifted.
			assert.Equal(t, row.RVDaily+float64(h), row.TargetRV, "h=%d row=%d", h, i)
		}
	}
}

func TestAssembleZeroFillsOutsidePanel(t *testing.T) {
	// Panel covers only the first 3 calendar days; later trading days fall
	// outside and join as zero intensity.
	features := tradingFeatures([]int{0, 1, 2, 3, 4, 5, 6})
	panel := calendarPanel(3)

	ds, err := NewAssembler(testLogger(t)).Assemble(features, panel, AssembleParams{
		Commodity:    "gold",
		ProxyTag:     "global",
		ProxyColumns: []string{"log_fatal"},
		Lags:         []int{1},
		Horizon:      1,
	})
	require.NoError(t, err)

	last := ds.Rows[len(ds.Rows)-1]
	assert.Equal(t, 0.0, last.Conflict["global__log_fatal_lag1"])
}

func TestAssembleMultipleLags(t *testing.T) {
	features := tradingFeatures([]int{0, 1, 2, 3, 4, 5, 6, 7})
	panel := calendarPanel(10)

	ds, err := NewAssembler(testLogger(t)).Assemble(features, panel, AssembleParams{
		Commodity:    "gold",
		ProxyTag:     "global",
		ProxyColumns: []string{"log_fatal"},
		Lags:         []int{1, 5},
		Horizon:      1,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"global__log_fatal_lag1", "global__log_fatal_lag5"}, ds.ConflictColumns)

	// First emitted row is at index maxLag.
	assert.Equal(t, features[5].Date, ds.Rows[0].Date)
	assert.Equal(t, 4.0, ds.Rows[0].Conflict["global__log_fatal_lag1"])
	assert.Equal(t, 0.0, ds.Rows[0].Conflict["global__log_fatal_lag5"])
}

func TestAssembleRejectsBadParams(t *testing.T) {
	features := tradingFeatures([]int{0, 1, 2})
	panel := calendarPanel(5)
	a := NewAssembler(testLogger(t))

	_, err := a.Assemble(features, panel, AssembleParams{Horizon: 0})
	assert.Error(t, err)

	_, err = a.Assemble(features, panel, AssembleParams{
		Horizon: 1, Lags: []int{-1}, ProxyColumns: []string{"log_fatal"},
	})
	assert.Error(t, err)

	_, err = a.Assemble(features[:1], panel, AssembleParams{Horizon: 1})
	assert.Error(t, err)
}

func TestSliceRestrictsByDate(t *testing.T) {
	features := tradingFeatures([]int{0, 1, 2, 3, 4, 5, 6, 7})
	panel := calendarPanel(10)

	ds, err := NewAssembler(testLogger(t)).Assemble(features, panel, AssembleParams{
		Commodity:    "gold",
		ProxyTag:     "global",
		ProxyColumns: []string{"log_fatal"},
		Lags:         []int{1},
		Horizon:      1,
	})
	require.NoError(t, err)

	start := ds.Rows[2].Date
	end := ds.Rows[4].Date
	sliced := Slice(ds, start, end)
	require.Len(t, sliced.Rows, 3)
	assert.Equal(t, start, sliced.Rows[0].Date)
	assert.Equal(t, end, sliced.Rows[2].Date)
	assert.Equal(t, ds.ConflictColumns, sliced.ConflictColumns)
}
