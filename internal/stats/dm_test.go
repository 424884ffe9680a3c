package stats

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ConflictVol/internal/domain/models"
)

func makeLosses(model string, qlike []float64) []models.LossRecord {
	out := make([]models.LossRecord, len(qlike))
	for i, q := range qlike {
		out[i] = models.LossRecord{Date: day(i), Model: model, QLIKE: q}
	}
	return out
}

func TestDieboldMarianoAntisymmetry(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	n := 100
	qa := make([]float64, n)
	qb := make([]float64, n)
	for i := range qa {
		qa[i] = rng.NormFloat64()
		qb[i] = rng.NormFloat64() + 0.3
	}

	ab, err := DieboldMariano(makeLosses("A", qa), makeLosses("B", qb), 0, 30)
	require.NoError(t, err)
	ba, err := DieboldMariano(makeLosses("B", qb), makeLosses("A", qa), 0, 30)
	require.NoError(t, err)

	assert.InDelta(t, -ab.Statistic, ba.Statistic, 1e-12)
	assert.InDelta(t, ab.PValue, ba.PValue, 1e-12)
	assert.Equal(t, ab.N, ba.N)
}

func TestDieboldMarianoFavorsLowerLoss(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	n := 200
	qa := make([]float64, n)
	qb := make([]float64, n)
	for i := range qa {
		noise := rng.NormFloat64() * 0.1
		qa[i] = 1.0 + noise
		qb[i] = 2.0 + noise + rng.NormFloat64()*0.1
	}

	res, err := DieboldMariano(makeLosses("A", qa), makeLosses("B", qb), 0, 30)
	require.NoError(t, err)
	assert.Less(t, res.Statistic, 0.0, "A has lower loss, statistic must be negative")
	assert.Less(t, res.PValue, 0.01)
}

func TestDieboldMarianoDegenerateVariance(t *testing.T) {
	q := make([]float64, 50)
	for i := range q {
		q[i] = 1.5
	}
	res, err := DieboldMariano(makeLosses("A", q), makeLosses("B", q), 0, 30)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Statistic)
	assert.Equal(t, 1.0, res.PValue)
}

func TestDieboldMarianoMisaligned(t *testing.T) {
	a := makeLosses("A", []float64{1, 2, 3})
	b := makeLosses("B", []float64{1, 2})
	_, err := DieboldMariano(a, b, 0, 1)
	assert.ErrorIs(t, err, ErrMisalignedSeries)

	b = makeLosses("B", []float64{1, 2, 3})
	b[1].Date = day(10)
	_, err = DieboldMariano(a, b, 0, 1)
	assert.ErrorIs(t, err, ErrMisalignedSeries)
}

func TestDieboldMarianoTooFewObservations(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	q := make([]float64, 10)
	for i := range q {
		q[i] = rng.NormFloat64()
	}
	_, err := DieboldMariano(makeLosses("A", q), makeLosses("B", q), 0, 30)
	assert.ErrorIs(t, err, ErrTooFewObservations)
}

func TestDieboldMarianoSkipsNonFiniteDiffs(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	n := 40
	qa := make([]float64, n)
	qb := make([]float64, n)
	for i := range qa {
		qa[i] = rng.NormFloat64()
		qb[i] = rng.NormFloat64()
	}
	qa[3] = math.NaN()
	qa[17] = math.Inf(1)

	res, err := DieboldMariano(makeLosses("A", qa), makeLosses("B", qb), 0, 30)
	require.NoError(t, err)
	assert.Equal(t, n-2, res.N)
}

func TestDieboldMarianoNeweyWestLags(t *testing.T) {
	n := 150
	qa := make([]float64, n)
	qb := make([]float64, n)
	// Smooth differential with strong positive autocorrelation at short lags,
	// the multi-step horizon scenario Newey-West corrects for.
	for i := range qa {
		qa[i] = 0.2 + math.Sin(float64(i)/5)
		qb[i] = 0.0
	}

	res0, err := DieboldMariano(makeLosses("A", qa), makeLosses("B", qb), 0, 30)
	require.NoError(t, err)
	res4, err := DieboldMariano(makeLosses("A", qa), makeLosses("B", qb), 4, 30)
	require.NoError(t, err)

	assert.Equal(t, 0, res0.Lags)
	assert.Equal(t, 4, res4.Lags)
	// Positive autocorrelation widens the long-run variance, shrinking the
	// statistic in absolute value.
	assert.Less(t, math.Abs(res4.Statistic), math.Abs(res0.Statistic))
}
