package stats

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"ConflictVol/internal/domain/models"
)

var (
	// ErrMisalignedSeries rejects a comparison between loss series that do
	// not share the same dates. Fatal for the requested pair only.
	ErrMisalignedSeries = errors.New("loss series are not date-aligned")

	// ErrTooFewObservations rejects a comparison too short for the
	// asymptotic test to be meaningful.
	ErrTooFewObservations = errors.New("too few observations for DM test")
)

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// DieboldMariano tests equal predictive accuracy of two models from their
// date-aligned QLIKE loss series. The long-run variance of the loss
// differential uses Newey-West Bartlett weights with the given lag count
// (conventionally horizon-1 for h-step forecasts). The statistic is compared
// against the standard normal; a negative value favors model A.
func DieboldMariano(lossA, lossB []models.LossRecord, lags, minObs int) (models.DMResult, error) {
	var res models.DMResult
	if len(lossA) > 0 {
		res.ModelA = lossA[0].Model
	}
	if len(lossB) > 0 {
		res.ModelB = lossB[0].Model
	}

	if len(lossA) != len(lossB) {
		return res, fmt.Errorf("%w: %d vs %d records", ErrMisalignedSeries, len(lossA), len(lossB))
	}
	for i := range lossA {
		if !lossA[i].Date.Equal(lossB[i].Date) {
			return res, fmt.Errorf("%w: index %d has %s vs %s", ErrMisalignedSeries, i,
				lossA[i].Date.Format("2006-01-02"), lossB[i].Date.Format("2006-01-02"))
		}
	}

	d := make([]float64, 0, len(lossA))
	for i := range lossA {
		diff := lossA[i].QLIKE - lossB[i].QLIKE
		if !finite(diff) {
			continue // excluded records never reach the aggregate
		}
		d = append(d, diff)
	}

	n := len(d)
	res.N = n
	res.Lags = lags
	if n < minObs {
		return res, fmt.Errorf("%w: %d aligned observations, need %d", ErrTooFewObservations, n, minObs)
	}

	dBar := stat.Mean(d, nil)
	dc := make([]float64, n)
	for i, v := range d {
		dc[i] = v - dBar
	}

	// Newey-West long-run variance for serial correlation in the loss
	// differential.
	variance := autocovariance(dc, 0)
	for l := 1; l <= lags; l++ {
		w := 1.0 - float64(l)/float64(lags+1)
		variance += 2 * w * autocovariance(dc, l)
	}

	if variance < 1e-18 {
		// Identical (or affinely identical) forecasts: no evidence either way.
		res.Statistic = 0
		res.PValue = 1
		return res, nil
	}

	res.Statistic = dBar / math.Sqrt(variance/float64(n))
	res.PValue = 2 * (1 - stdNormal.CDF(math.Abs(res.Statistic)))
	return res, nil
}

// autocovariance returns the lag-l autocovariance of a demeaned series, with
// the 1/n normalization used by the Newey-West estimator.
func autocovariance(dc []float64, lag int) float64 {
	n := len(dc)
	if lag >= n {
		return 0
	}
	sum := 0.0
	for i := lag; i < n; i++ {
		sum += dc[i] * dc[i-lag]
	}
	return sum / float64(n)
}
