package estimators

import (
	"fmt"

	"ConflictVol/internal/domain/models"
	"ConflictVol/internal/domain/service"
)

// FromSpec builds the estimator a ModelSpec names.
func FromSpec(spec models.ModelSpec, forest ForestParams) (service.Estimator, error) {
	switch spec.Kind {
	case models.KindHAR:
		return NewHAR(spec.FeatureSet), nil
	case models.KindHARX:
		return NewHARX(spec.FeatureSet), nil
	case models.KindGARCH:
		return NewGARCH(), nil
	case models.KindRandomForest:
		return NewRandomForest(spec.FeatureSet, forest), nil
	default:
		return nil, fmt.Errorf("unknown estimator kind %q", spec.Kind)
	}
}
