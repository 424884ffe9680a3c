package models

import (
	"fmt"
	"time"
)

// Canonical feature column names for the realized-volatility components.
const (
	FeatureRVDaily   = "rv_daily"
	FeatureRVWeekly  = "rv_weekly"
	FeatureRVMonthly = "rv_monthly"
)

// ObservationRow is one trading day of a model-ready dataset. Conflict holds
// the lagged conflict-index columns keyed by column name. TargetRV is realized
// strictly after Date; it is the only forward-looking value on the row.
type ObservationRow struct {
	Date      time.Time
	Price     float64
	LogReturn float64
	RVDaily   float64
	RVWeekly  float64
	RVMonthly float64
	Conflict  map[string]float64
	TargetRV  float64
}

// Feature resolves a feature column by name.
func (r *ObservationRow) Feature(name string) (float64, bool) {
	switch name {
	case FeatureRVDaily:
		return r.RVDaily, true
	case FeatureRVWeekly:
		return r.RVWeekly, true
	case FeatureRVMonthly:
		return r.RVMonthly, true
	}
	v, ok := r.Conflict[name]
	return v, ok
}

// FeatureVector assembles the named features in order.
func (r *ObservationRow) FeatureVector(names []string) ([]float64, error) {
	out := make([]float64, len(names))
	for i, name := range names {
		v, ok := r.Feature(name)
		if !ok {
			return nil, fmt.Errorf("feature %q not present on row %s", name, r.Date.Format("2006-01-02"))
		}
		out[i] = v
	}
	return out, nil
}

// Dataset is the read-only input to the walk-forward evaluation: one row per
// trading date, sorted by date, unique dates.
type Dataset struct {
	Commodity       string
	Rows            []ObservationRow
	ConflictColumns []string
}

// Validate checks the date-ordering invariant.
func (d *Dataset) Validate() error {
	for i := 1; i < len(d.Rows); i++ {
		if !d.Rows[i-1].Date.Before(d.Rows[i].Date) {
			return fmt.Errorf("dataset %s: dates not strictly increasing at index %d (%s >= %s)",
				d.Commodity, i,
				d.Rows[i-1].Date.Format("2006-01-02"),
				d.Rows[i].Date.Format("2006-01-02"))
		}
	}
	return nil
}
