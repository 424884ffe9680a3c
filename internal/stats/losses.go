package stats

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"ConflictVol/internal/domain/models"
)

// QLIKE is the standard volatility-forecast loss log(pred) + actual/pred. It
// is defined only for positive forecasts, so the forecast is floored at eps
// first; the floor is applied identically to every model to keep pairwise
// comparisons fair. Actuals are not floored: QLIKE(0, eps) = log(eps) exactly.
func QLIKE(actual, pred, eps float64) float64 {
	if pred < eps {
		pred = eps
	}
	return math.Log(pred) + actual/pred
}

// SquaredError is (actual - pred)^2 on the raw forecast.
func SquaredError(actual, pred float64) float64 {
	d := actual - pred
	return d * d
}

// Score derives loss records from forecast records, preserving order.
func Score(records []models.ForecastRecord, eps float64) []models.LossRecord {
	out := make([]models.LossRecord, len(records))
	for i, r := range records {
		out[i] = models.LossRecord{
			Date:         r.Date,
			Model:        r.Model,
			QLIKE:        QLIKE(r.Actual, r.Predicted, eps),
			SquaredError: SquaredError(r.Actual, r.Predicted),
		}
	}
	return out
}

// Summarize averages a model's losses. Records carrying NaN or Inf are
// excluded from the aggregates and counted, never propagated.
func Summarize(model string, losses []models.LossRecord) models.LossSummary {
	qlike := make([]float64, 0, len(losses))
	squared := make([]float64, 0, len(losses))
	excluded := 0
	for _, l := range losses {
		if !finite(l.QLIKE) || !finite(l.SquaredError) {
			excluded++
			continue
		}
		qlike = append(qlike, l.QLIKE)
		squared = append(squared, l.SquaredError)
	}

	s := models.LossSummary{Model: model, N: len(qlike), Excluded: excluded}
	if len(qlike) > 0 {
		s.MeanQLIKE = stat.Mean(qlike, nil)
		s.MeanSquared = stat.Mean(squared, nil)
	} else {
		s.MeanQLIKE = math.NaN()
		s.MeanSquared = math.NaN()
	}
	return s
}

// CommonSample restricts every model's forecasts to the dates on which all
// models produced a finite forecast, so losses are compared on identical
// samples.
func CommonSample(byModel map[string][]models.ForecastRecord) map[string][]models.ForecastRecord {
	if len(byModel) == 0 {
		return byModel
	}

	counts := map[time.Time]int{}
	for _, records := range byModel {
		for _, r := range records {
			if finite(r.Predicted) && finite(r.Actual) {
				counts[r.Date]++
			}
		}
	}
	keep := map[time.Time]bool{}
	for date, c := range counts {
		if c == len(byModel) {
			keep[date] = true
		}
	}

	out := make(map[string][]models.ForecastRecord, len(byModel))
	for model, records := range byModel {
		filtered := make([]models.ForecastRecord, 0, len(records))
		for _, r := range records {
			if keep[r.Date] {
				filtered = append(filtered, r)
			}
		}
		sort.Slice(filtered, func(i, j int) bool { return filtered[i].Date.Before(filtered[j].Date) })
		out[model] = filtered
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
