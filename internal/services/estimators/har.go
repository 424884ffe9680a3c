package estimators

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"ConflictVol/internal/domain/models"
	"ConflictVol/internal/domain/service"
)

// HAR is the heterogeneous-autoregressive volatility model: OLS of the target
// on daily/weekly/monthly realized-volatility components, plus any extra
// regressors (the HAR-X variant adds lagged conflict indices). The two
// variants differ only in their feature set.
type HAR struct {
	kind     models.EstimatorKind
	features []string
}

func NewHAR(features []string) *HAR {
	return &HAR{kind: models.KindHAR, features: features}
}

func NewHARX(features []string) *HAR {
	return &HAR{kind: models.KindHARX, features: features}
}

func (h *HAR) Kind() models.EstimatorKind { return h.kind }

func (h *HAR) Fit(rows []models.ObservationRow) (service.Fitted, error) {
	n := len(rows)
	p := len(h.features)
	if n < p+2 {
		return nil, fmt.Errorf("%w: %d rows for %d regressors", service.ErrEstimatorFit, n, p)
	}

	y := make([]float64, n)
	for i := range rows {
		y[i] = rows[i].TargetRV
	}

	// Degenerate target (a flat volatility regime) is not a fit failure; the
	// best linear predictor is the constant.
	if sampleVariance(y) < 1e-18 {
		return &fittedHAR{features: h.features, coef: []float64{mean(y)}, constant: true}, nil
	}

	X := mat.NewDense(n, p+1, nil)
	for i, row := range rows {
		X.Set(i, 0, 1)
		vec, err := row.FeatureVector(h.features)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", service.ErrEstimatorFit, err)
		}
		for j, v := range vec {
			X.Set(i, j+1, v)
		}
	}

	var qr mat.QR
	qr.Factorize(X)
	var beta mat.Dense
	if err := qr.SolveTo(&beta, false, mat.NewDense(n, 1, y)); err != nil {
		return nil, fmt.Errorf("%w: singular design: %v", service.ErrEstimatorFit, err)
	}

	coef := make([]float64, p+1)
	for j := range coef {
		coef[j] = beta.At(j, 0)
		if math.IsNaN(coef[j]) || math.IsInf(coef[j], 0) {
			return nil, fmt.Errorf("%w: non-finite coefficient", service.ErrEstimatorFit)
		}
	}
	return &fittedHAR{features: h.features, coef: coef}, nil
}

type fittedHAR struct {
	features []string
	coef     []float64 // intercept first
	constant bool
}

func (f *fittedHAR) Predict(row models.ObservationRow) (float64, error) {
	if f.constant {
		return f.coef[0], nil
	}
	vec, err := row.FeatureVector(f.features)
	if err != nil {
		return 0, err
	}
	pred := f.coef[0]
	for j, v := range vec {
		pred += f.coef[j+1] * v
	}
	return pred, nil
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func sampleVariance(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	sum := 0.0
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return sum / float64(len(xs)-1)
}
