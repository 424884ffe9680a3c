package models

import "time"

// EstimatorKind identifies a member of the closed estimator set.
type EstimatorKind string

const (
	KindHAR          EstimatorKind = "har"
	KindHARX         EstimatorKind = "har-x"
	KindGARCH        EstimatorKind = "garch"
	KindRandomForest EstimatorKind = "random_forest"
)

// ModelSpec describes one model registered for evaluation. Immutable once an
// evaluation run starts.
type ModelSpec struct {
	Name             string
	Kind             EstimatorKind
	FeatureSet       []string
	RefitCadenceDays int
}

// ForecastRecord is one out-of-sample point forecast. The sequence produced by
// a run is append-only and ordered by date.
type ForecastRecord struct {
	Date      time.Time `json:"date"`
	Commodity string    `json:"commodity"`
	Model     string    `json:"model"`
	Predicted float64   `json:"predicted"`
	Actual    float64   `json:"actual"`
}

// LossRecord is the per-date, per-model scoring of a ForecastRecord.
type LossRecord struct {
	Date         time.Time `json:"date"`
	Model        string    `json:"model"`
	QLIKE        float64   `json:"qlike"`
	SquaredError float64   `json:"squared_error"`
}

// DMResult holds a Diebold-Mariano pairwise comparison. A negative statistic
// favors model A (lower loss), positive favors model B.
type DMResult struct {
	ModelA    string  `json:"model_a"`
	ModelB    string  `json:"model_b"`
	Statistic float64 `json:"statistic"`
	PValue    float64 `json:"p_value"`
	N         int     `json:"n"`
	Lags      int     `json:"lags"`
}

// LossSummary aggregates a model's losses over the common sample.
type LossSummary struct {
	Model       string  `json:"model"`
	MeanQLIKE   float64 `json:"mean_qlike"`
	MeanSquared float64 `json:"mean_squared_error"`
	N           int     `json:"n"`
	Excluded    int     `json:"excluded"`
}
