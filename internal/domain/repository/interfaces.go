package repository

import (
	"context"

	"ConflictVol/internal/domain/models"
)

// ForecastStore persists forecast records to durable storage.
type ForecastStore interface {
	Init(ctx context.Context) error
	StoreBatch(ctx context.Context, records []models.ForecastRecord) error
	Health(ctx context.Context) error
	Close() error
}

// ForecastPublisher streams forecast records to a downstream consumer.
type ForecastPublisher interface {
	PublishBatch(ctx context.Context, records []models.ForecastRecord) error
	Close() error
}

// Metrics records evaluation run instrumentation.
type Metrics interface {
	RecordRefit(model string)
	RecordFitError(model string)
	RecordForecast(model string)
	RecordRows(stage string, n int)
	RecordDuration(op string, seconds float64)
}
