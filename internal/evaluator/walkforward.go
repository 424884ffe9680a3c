package evaluator

import (
	"errors"
	"fmt"
	"time"

	"ConflictVol/internal/domain/models"
	"ConflictVol/internal/domain/repository"
	"ConflictVol/internal/domain/service"
	"ConflictVol/pkg/logger"
)

// ErrInsufficientHistory aborts a run whose training window cannot fit inside
// the series.
var ErrInsufficientHistory = errors.New("insufficient history for training window")

// Config holds the walk-forward parameters shared by every model in a run.
type Config struct {
	TrainingWindow int  // minimum training rows before the first forecast
	Horizon        int  // trading days ahead the target is realized
	Expanding      bool // expanding window when true, rolling otherwise
}

// RunStats summarizes one model's walk.
type RunStats struct {
	Model     string
	Refits    int // distinct fitted model instances used
	FitErrors int // refits that failed and carried the previous model forward
	Skipped   int // evaluation dates with no usable model
	Forecasts int
}

// Evaluator drives the time-ordered out-of-sample walk. It is deliberately
// sequential: each step's training slice depends on the truncation boundary of
// the previous steps, and the current fitted model is state owned by the loop.
// Running different models concurrently over the same frozen dataset is safe;
// parallelism across dates for one model is not.
type Evaluator struct {
	cfg     Config
	log     *logger.Logger
	metrics repository.Metrics
}

func New(cfg Config, log *logger.Logger, metrics repository.Metrics) *Evaluator {
	return &Evaluator{cfg: cfg, log: log.Component("evaluator"), metrics: metrics}
}

// Run walks one model across the dataset and returns its forecast records in
// date order, one per evaluation date with a usable model.
//
// At evaluation index t the model may train only on rows whose target is
// already realized: indexes up to and excluding t-h+1. The refit cadence
// amortizes estimator cost; between refits the previous fitted model is
// reused, never mutated. A failed refit is recoverable: it is logged, counted,
// and the previous model carries the window.
func (e *Evaluator) Run(ds *models.Dataset, spec models.ModelSpec, est service.Estimator) ([]models.ForecastRecord, RunStats, error) {
	stats := RunStats{Model: spec.Name}

	if err := ds.Validate(); err != nil {
		return nil, stats, err
	}
	w, h := e.cfg.TrainingWindow, e.cfg.Horizon
	if w <= 0 || h <= 0 {
		return nil, stats, fmt.Errorf("training window and horizon must be positive (w=%d h=%d)", w, h)
	}
	if spec.RefitCadenceDays <= 0 {
		return nil, stats, fmt.Errorf("model %s: refit cadence must be positive", spec.Name)
	}
	n := len(ds.Rows)
	if w+h > n {
		return nil, stats, fmt.Errorf("%w: window %d + horizon %d exceeds %d rows", ErrInsufficientHistory, w, h, n)
	}

	start := time.Now()
	var fitted service.Fitted
	records := make([]models.ForecastRecord, 0, n-w)

	for t := w; t < n; t++ {
		if (t-w)%spec.RefitCadenceDays == 0 {
			next, err := e.refit(ds, spec, est, t)
			if err != nil {
				stats.FitErrors++
				e.metrics.RecordFitError(spec.Name)
				e.log.Warn("refit failed, carrying previous model",
					logger.String("model", spec.Name),
					logger.Time("date", ds.Rows[t].Date),
					logger.Error(err))
			} else {
				fitted = next
				stats.Refits++
				e.metrics.RecordRefit(spec.Name)
			}
		}

		if fitted == nil {
			// No model yet (first refit failed); skip until one converges.
			stats.Skipped++
			continue
		}

		pred, err := fitted.Predict(ds.Rows[t])
		if err != nil {
			stats.Skipped++
			e.log.Warn("prediction failed",
				logger.String("model", spec.Name),
				logger.Time("date", ds.Rows[t].Date),
				logger.Error(err))
			continue
		}

		records = append(records, models.ForecastRecord{
			Date:      ds.Rows[t].Date,
			Commodity: ds.Commodity,
			Model:     spec.Name,
			Predicted: pred,
			Actual:    ds.Rows[t].TargetRV,
		})
		stats.Forecasts++
		e.metrics.RecordForecast(spec.Name)
	}

	e.metrics.RecordDuration("walk_forward", time.Since(start).Seconds())
	e.log.Info("walk complete",
		logger.String("model", spec.Name),
		logger.Int("forecasts", stats.Forecasts),
		logger.Int("refits", stats.Refits),
		logger.Int("fit_errors", stats.FitErrors),
		logger.Int("skipped", stats.Skipped))
	return records, stats, nil
}

// refit fits on a fresh immutable training slice ending before the rows whose
// targets are not yet realized at t. With horizon h the last usable training
// row is t-h: its target is realized by date t. Slicing (not copying) is safe
// because estimators treat training rows as read-only.
func (e *Evaluator) refit(ds *models.Dataset, spec models.ModelSpec, est service.Estimator, t int) (service.Fitted, error) {
	hi := t - e.cfg.Horizon + 1
	lo := 0
	if !e.cfg.Expanding {
		lo = hi - e.cfg.TrainingWindow
		if lo < 0 {
			lo = 0
		}
	}
	if hi <= lo {
		return nil, fmt.Errorf("%w: empty training slice at index %d", ErrInsufficientHistory, t)
	}
	return est.Fit(ds.Rows[lo:hi])
}
