package estimators

import (
	"fmt"
	"math"
	"sort"

	"ConflictVol/internal/domain/models"
	"ConflictVol/internal/domain/service"
)

const (
	garchMinObs      = 50
	garchMaxIter     = 400
	garchTol         = 1e-9
	garchStationCap  = 0.999 // alpha + beta must stay below this
	garchVarianceEps = 1e-12
)

// GARCH fits a GARCH(1,1) by Gaussian quasi-maximum-likelihood on the raw
// log-return series of the training slice, ignoring the tabular features.
// The forecast is the one-step-ahead conditional variance, which lives on the
// same scale as the squared-return realized-volatility target.
type GARCH struct{}

func NewGARCH() *GARCH { return &GARCH{} }

func (g *GARCH) Kind() models.EstimatorKind { return models.KindGARCH }

func (g *GARCH) Fit(rows []models.ObservationRow) (service.Fitted, error) {
	if len(rows) < garchMinObs {
		return nil, fmt.Errorf("%w: %d returns, need %d", service.ErrEstimatorFit, len(rows), garchMinObs)
	}
	returns := make([]float64, len(rows))
	for i := range rows {
		returns[i] = rows[i].LogReturn
	}

	sv := sampleVariance(returns)
	if sv < garchVarianceEps {
		// Flat return regime: variance process is degenerate, not broken.
		return &fittedGARCH{omega: garchVarianceEps, lastVar: garchVarianceEps}, nil
	}

	nll := func(theta []float64) float64 {
		omega, alpha, beta := theta[0], theta[1], theta[2]
		if omega <= 0 || alpha < 0 || beta < 0 || alpha+beta >= garchStationCap {
			return math.Inf(1)
		}
		v := sv
		ll := 0.0
		for _, r := range returns {
			if v < garchVarianceEps {
				v = garchVarianceEps
			}
			ll += math.Log(v) + r*r/v
			v = omega + alpha*r*r + beta*v
		}
		return ll
	}

	start := []float64{0.05 * sv, 0.05, 0.90}
	theta, value := nelderMead(nll, start, garchMaxIter, garchTol)
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return nil, fmt.Errorf("%w: GARCH likelihood did not converge", service.ErrEstimatorFit)
	}

	omega, alpha, beta := theta[0], theta[1], theta[2]
	// Filter the conditional variance through the training sample so the
	// fitted model carries its end-of-sample state immutably.
	v := sv
	for _, r := range returns {
		v = omega + alpha*r*r + beta*v
	}
	return &fittedGARCH{omega: omega, alpha: alpha, beta: beta, lastVar: v}, nil
}

type fittedGARCH struct {
	omega, alpha, beta float64
	lastVar            float64
}

// Predict advances the recursion one step using the row's squared return and
// the conditional variance carried from the end of the training sample.
func (f *fittedGARCH) Predict(row models.ObservationRow) (float64, error) {
	v := f.omega + f.alpha*row.RVDaily + f.beta*f.lastVar
	if v < garchVarianceEps {
		v = garchVarianceEps
	}
	return v, nil
}

// nelderMead minimizes fn over a low-dimensional parameter vector with the
// standard reflect/expand/contract/shrink simplex.
func nelderMead(fn func([]float64) float64, start []float64, maxIter int, tol float64) ([]float64, float64) {
	dim := len(start)
	type vertex struct {
		x []float64
		f float64
	}

	simplex := make([]vertex, dim+1)
	simplex[0] = vertex{x: append([]float64(nil), start...), f: fn(start)}
	for i := 0; i < dim; i++ {
		x := append([]float64(nil), start...)
		step := 0.1 * math.Abs(x[i])
		if step == 0 {
			step = 0.01
		}
		x[i] += step
		simplex[i+1] = vertex{x: x, f: fn(x)}
	}

	centroid := make([]float64, dim)
	for iter := 0; iter < maxIter; iter++ {
		sort.Slice(simplex, func(a, b int) bool { return simplex[a].f < simplex[b].f })
		best, worst := simplex[0], simplex[dim]
		if math.Abs(worst.f-best.f) < tol*(math.Abs(best.f)+tol) {
			break
		}

		for j := range centroid {
			centroid[j] = 0
			for i := 0; i < dim; i++ {
				centroid[j] += simplex[i].x[j]
			}
			centroid[j] /= float64(dim)
		}

		combine := func(a, b []float64, wa, wb float64) []float64 {
			out := make([]float64, dim)
			for j := range out {
				out[j] = wa*a[j] + wb*b[j]
			}
			return out
		}

		reflected := combine(centroid, worst.x, 2, -1)
		fr := fn(reflected)
		switch {
		case fr < best.f:
			expanded := combine(centroid, worst.x, 3, -2)
			if fe := fn(expanded); fe < fr {
				simplex[dim] = vertex{x: expanded, f: fe}
			} else {
				simplex[dim] = vertex{x: reflected, f: fr}
			}
		case fr < simplex[dim-1].f:
			simplex[dim] = vertex{x: reflected, f: fr}
		default:
			contracted := combine(centroid, worst.x, 0.5, 0.5)
			if fc := fn(contracted); fc < worst.f {
				simplex[dim] = vertex{x: contracted, f: fc}
			} else {
				for i := 1; i <= dim; i++ {
					simplex[i].x = combine(best.x, simplex[i].x, 0.5, 0.5)
					simplex[i].f = fn(simplex[i].x)
				}
			}
		}
	}

	sort.Slice(simplex, func(a, b int) bool { return simplex[a].f < simplex[b].f })
	return simplex[0].x, simplex[0].f
}
