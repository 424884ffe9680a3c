package dataset

import (
	"fmt"
	"math"
	"sort"
	"time"

	"ConflictVol/internal/domain/models"
	"ConflictVol/pkg/logger"
)

// AssembleParams shapes the model-ready dataset for one commodity.
type AssembleParams struct {
	Commodity    string
	ProxyTag     string   // conflict panel feeding the X columns
	ProxyColumns []string // panel columns to lag, e.g. log_fatal_ewma_94
	Lags         []int    // trading-day lags to build; lag 0 is contemporaneous
	Horizon      int      // TargetRV = RVDaily shifted -Horizon trading days
}

// Assembler joins commodity features with a conflict panel into the
// observation table the evaluator consumes.
type Assembler struct {
	log *logger.Logger
}

func NewAssembler(log *logger.Logger) *Assembler {
	return &Assembler{log: log.Component("assembler")}
}

// Assemble left-joins the conflict columns onto the trading-date series
// (missing conflict days count as zero intensity), lags them by trading rows,
// sets the forward target, and drops rows with undefined target or regressors.
// Only the target looks forward; every conflict column enters lagged.
func (a *Assembler) Assemble(features []FeatureRow, panel *Panel, p AssembleParams) (*models.Dataset, error) {
	if p.Horizon <= 0 {
		return nil, fmt.Errorf("horizon must be positive, got %d", p.Horizon)
	}
	if len(features) <= p.Horizon {
		return nil, fmt.Errorf("%s: %d feature rows cannot support horizon %d", p.Commodity, len(features), p.Horizon)
	}
	maxLag := 0
	for _, lag := range p.Lags {
		if lag < 0 {
			return nil, fmt.Errorf("negative conflict lag %d", lag)
		}
		if lag > maxLag {
			maxLag = lag
		}
	}

	n := len(features)

	// Align each proxy column onto trading dates before lagging, so a lag of
	// one means the previous trading day, not the previous calendar day.
	aligned := make(map[string][]float64, len(p.ProxyColumns))
	for _, col := range p.ProxyColumns {
		series := make([]float64, n)
		for i, row := range features {
			if v, ok := panel.At(col, row.Date); ok {
				series[i] = v
			}
		}
		aligned[col] = series
	}

	conflictNames := make([]string, 0, len(p.ProxyColumns)*len(p.Lags))
	for _, col := range p.ProxyColumns {
		for _, lag := range p.Lags {
			conflictNames = append(conflictNames, fmt.Sprintf("%s__%s_lag%d", p.ProxyTag, col, lag))
		}
	}
	sort.Strings(conflictNames)

	rows := make([]models.ObservationRow, 0, n-p.Horizon)
	dropped := 0
	for i := maxLag; i < n-p.Horizon; i++ {
		target := features[i+p.Horizon].RVDaily

		row := models.ObservationRow{
			Date:      features[i].Date,
			Price:     features[i].Price,
			LogReturn: features[i].LogReturn,
			RVDaily:   features[i].RVDaily,
			RVWeekly:  features[i].RVWeekly,
			RVMonthly: features[i].RVMonthly,
			TargetRV:  target,
			Conflict:  make(map[string]float64, len(conflictNames)),
		}
		for _, col := range p.ProxyColumns {
			for _, lag := range p.Lags {
				name := fmt.Sprintf("%s__%s_lag%d", p.ProxyTag, col, lag)
				row.Conflict[name] = aligned[col][i-lag]
			}
		}
		if !finiteRow(&row) {
			dropped++
			continue
		}
		rows = append(rows, row)
	}

	ds := &models.Dataset{
		Commodity:       p.Commodity,
		Rows:            rows,
		ConflictColumns: conflictNames,
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}

	a.log.Info("dataset assembled",
		logger.String("commodity", p.Commodity),
		logger.String("proxy", p.ProxyTag),
		logger.Int("rows", len(rows)),
		logger.Int("dropped", dropped))
	return ds, nil
}

// Slice restricts a dataset to [start, end] by date.
func Slice(ds *models.Dataset, start, end time.Time) *models.Dataset {
	rows := make([]models.ObservationRow, 0, len(ds.Rows))
	for _, r := range ds.Rows {
		if r.Date.Before(start) || r.Date.After(end) {
			continue
		}
		rows = append(rows, r)
	}
	return &models.Dataset{
		Commodity:       ds.Commodity,
		Rows:            rows,
		ConflictColumns: ds.ConflictColumns,
	}
}

func finiteRow(r *models.ObservationRow) bool {
	for _, v := range []float64{r.Price, r.LogReturn, r.RVDaily, r.RVWeekly, r.RVMonthly, r.TargetRV} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	for _, v := range r.Conflict {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
