package estimators

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ConflictVol/internal/domain/models"
	"ConflictVol/internal/domain/service"
)

var harFeatures = []string{models.FeatureRVDaily, models.FeatureRVWeekly, models.FeatureRVMonthly}

func linearRows(n int, seed int64, target func(d, w, m float64) float64) []models.ObservationRow {
	rng := rand.New(rand.NewSource(seed))
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]models.ObservationRow, n)
	for i := range rows {
		d := 0.01 + 0.02*rng.Float64()
		w := 0.01 + 0.02*rng.Float64()
		m := 0.01 + 0.02*rng.Float64()
		rows[i] = models.ObservationRow{
			Date:      base.AddDate(0, 0, i),
			RVDaily:   d,
			RVWeekly:  w,
			RVMonthly: m,
			TargetRV:  target(d, w, m),
		}
	}
	return rows
}

func TestHARRecoversLinearCoefficients(t *testing.T) {
	rows := linearRows(200, 1, func(d, w, m float64) float64 {
		return 0.5 + 2*d + 3*w - m
	})

	fitted, err := NewHAR(harFeatures).Fit(rows)
	require.NoError(t, err)

	probe := models.ObservationRow{RVDaily: 0.015, RVWeekly: 0.02, RVMonthly: 0.012}
	pred, err := fitted.Predict(probe)
	require.NoError(t, err)
	want := 0.5 + 2*0.015 + 3*0.02 - 0.012
	assert.InDelta(t, want, pred, 1e-8)
}

func TestHARConstantTarget(t *testing.T) {
	rows := linearRows(100, 2, func(d, w, m float64) float64 { return 0.42 })

	fitted, err := NewHAR(harFeatures).Fit(rows)
	require.NoError(t, err)

	pred, err := fitted.Predict(models.ObservationRow{RVDaily: 99, RVWeekly: 99, RVMonthly: 99})
	require.NoError(t, err)
	assert.InDelta(t, 0.42, pred, 1e-12)
}

func TestHARTooFewRows(t *testing.T) {
	rows := linearRows(4, 3, func(d, w, m float64) float64 { return d })
	_, err := NewHAR(harFeatures).Fit(rows)
	assert.ErrorIs(t, err, service.ErrEstimatorFit)
}

func TestHARXUsesConflictColumns(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	const conflictCol = "middle_east__log_fatal_lag1"
	rows := make([]models.ObservationRow, 150)
	for i := range rows {
		d := 0.01 + 0.02*rng.Float64()
		c := rng.Float64()
		rows[i] = models.ObservationRow{
			Date:     base.AddDate(0, 0, i),
			RVDaily:  d,
			Conflict: map[string]float64{conflictCol: c},
			TargetRV: 0.1 + d + 0.5*c,
		}
	}

	fitted, err := NewHARX([]string{models.FeatureRVDaily, conflictCol}).Fit(rows)
	require.NoError(t, err)

	probe := models.ObservationRow{RVDaily: 0.02, Conflict: map[string]float64{conflictCol: 0.7}}
	pred, err := fitted.Predict(probe)
	require.NoError(t, err)
	assert.InDelta(t, 0.1+0.02+0.5*0.7, pred, 1e-8)
}

func TestHARXMissingFeature(t *testing.T) {
	rows := linearRows(100, 5, func(d, w, m float64) float64 { return d })
	_, err := NewHARX([]string{models.FeatureRVDaily, "absent_column"}).Fit(rows)
	assert.ErrorIs(t, err, service.ErrEstimatorFit)
}
