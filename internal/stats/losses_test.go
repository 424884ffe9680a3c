package stats

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ConflictVol/internal/domain/models"
)

func day(i int) time.Time {
	return time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func TestQLIKEFloorsForecastOnly(t *testing.T) {
	eps := 0.001

	// A zero forecast is floored; a zero actual is not.
	assert.InDelta(t, math.Log(eps)+0.5/eps, QLIKE(0.5, 0, eps), 1e-12)
	assert.InDelta(t, math.Log(eps), QLIKE(0, 0, eps), 1e-12)

	// Forecasts above the floor pass through untouched.
	assert.InDelta(t, math.Log(2)+0.5, QLIKE(1, 2, eps), 1e-12)
}

func TestQLIKEFiniteOnDegenerateInputs(t *testing.T) {
	eps := 0.001
	for _, pred := range []float64{0, eps / 10, eps} {
		v := QLIKE(0, pred, eps)
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "pred=%g", pred)
		assert.InDelta(t, math.Log(eps), v, 1e-12)
	}
}

func TestScorePreservesOrderAndDates(t *testing.T) {
	records := []models.ForecastRecord{
		{Date: day(0), Model: "HAR", Predicted: 1, Actual: 2},
		{Date: day(1), Model: "HAR", Predicted: 2, Actual: 2},
	}
	losses := Score(records, 0.001)
	require.Len(t, losses, 2)
	assert.Equal(t, day(0), losses[0].Date)
	assert.InDelta(t, math.Log(1)+2, losses[0].QLIKE, 1e-12)
	assert.InDelta(t, 1.0, losses[0].SquaredError, 1e-12)
	assert.InDelta(t, 0.0, losses[1].SquaredError, 1e-12)
}

func TestSummarizeExcludesNonFinite(t *testing.T) {
	losses := []models.LossRecord{
		{Date: day(0), Model: "HAR", QLIKE: 1, SquaredError: 1},
		{Date: day(1), Model: "HAR", QLIKE: math.NaN(), SquaredError: 1},
		{Date: day(2), Model: "HAR", QLIKE: 3, SquaredError: math.Inf(1)},
		{Date: day(3), Model: "HAR", QLIKE: 3, SquaredError: 3},
	}
	s := Summarize("HAR", losses)
	assert.Equal(t, "HAR", s.Model)
	assert.Equal(t, 2, s.N)
	assert.Equal(t, 2, s.Excluded)
	assert.InDelta(t, 2.0, s.MeanQLIKE, 1e-12)
	assert.InDelta(t, 2.0, s.MeanSquared, 1e-12)
}

func TestSummarizeAllExcluded(t *testing.T) {
	losses := []models.LossRecord{
		{Date: day(0), Model: "HAR", QLIKE: math.NaN(), SquaredError: 1},
	}
	s := Summarize("HAR", losses)
	assert.Equal(t, 0, s.N)
	assert.Equal(t, 1, s.Excluded)
	assert.True(t, math.IsNaN(s.MeanQLIKE))
}

func TestCommonSampleIntersectsDates(t *testing.T) {
	byModel := map[string][]models.ForecastRecord{
		"A": {
			{Date: day(0), Predicted: 1, Actual: 1},
			{Date: day(1), Predicted: 1, Actual: 1},
			{Date: day(2), Predicted: 1, Actual: 1},
		},
		"B": {
			{Date: day(0), Predicted: 1, Actual: 1},
			{Date: day(1), Predicted: math.NaN(), Actual: 1},
			{Date: day(2), Predicted: 1, Actual: 1},
		},
		"C": {
			{Date: day(0), Predicted: 1, Actual: 1},
			{Date: day(2), Predicted: 1, Actual: 1},
		},
	}
	out := CommonSample(byModel)
	for model, records := range out {
		require.Len(t, records, 2, "model %s", model)
		assert.Equal(t, day(0), records[0].Date)
		assert.Equal(t, day(2), records[1].Date)
	}
}
