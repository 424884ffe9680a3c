package service

import (
	"errors"

	"ConflictVol/internal/domain/models"
)

// ErrEstimatorFit signals a refit that failed to produce a usable model
// (singular design, non-convergence). Recoverable: the evaluator carries the
// previous fitted model forward.
var ErrEstimatorFit = errors.New("estimator fit failed")

// Estimator fits a forecasting model on a training slice. The only contract
// shared across the heterogeneous estimators is fit-on-rows, predict-a-scalar,
// so the set is modeled as implementations of this capability interface.
type Estimator interface {
	Kind() models.EstimatorKind
	Fit(rows []models.ObservationRow) (Fitted, error)
}

// Fitted is an immutable fitted model. Instances are replaced, never mutated,
// at each refit boundary.
type Fitted interface {
	Predict(row models.ObservationRow) (float64, error)
}
