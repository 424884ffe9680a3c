package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	refitsTotal    *prometheus.CounterVec
	fitErrorsTotal *prometheus.CounterVec
	forecastsTotal *prometheus.CounterVec
	rowsProcessed  *prometheus.CounterVec
	duration       *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		refitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conflictvol_refits_total",
				Help: "Total number of model refits during walk-forward evaluation",
			},
			[]string{"model"},
		),
		fitErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conflictvol_fit_errors_total",
				Help: "Total number of refits that failed and carried the previous model forward",
			},
			[]string{"model"},
		),
		forecastsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conflictvol_forecasts_total",
				Help: "Total number of out-of-sample forecasts produced",
			},
			[]string{"model"},
		),
		rowsProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conflictvol_rows_processed_total",
				Help: "Rows processed per pipeline stage",
			},
			[]string{"stage"},
		),
		duration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "conflictvol_operation_duration_seconds",
				Help:    "Duration of pipeline and evaluation operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordRefit(model string)    { r.refitsTotal.WithLabelValues(model).Inc() }
func (r *Recorder) RecordFitError(model string) { r.fitErrorsTotal.WithLabelValues(model).Inc() }
func (r *Recorder) RecordForecast(model string) { r.forecastsTotal.WithLabelValues(model).Inc() }

func (r *Recorder) RecordRows(stage string, n int) {
	r.rowsProcessed.WithLabelValues(stage).Add(float64(n))
}

func (r *Recorder) RecordDuration(op string, seconds float64) {
	r.duration.WithLabelValues(op).Observe(seconds)
}
