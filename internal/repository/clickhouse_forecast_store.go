package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"ConflictVol/internal/domain/models"
	pkgch "ConflictVol/pkg/clickhouse"
	applogger "ConflictVol/pkg/logger"
)

const chForecastTable = "conflictvol.forecasts"

const chInsertChunk = 500

// CHForecastStore implements ForecastStore backed by ClickHouse.
type CHForecastStore struct {
	db *sql.DB
	ch *pkgch.Client
	l  *applogger.Logger
}

func NewCHForecastStore(ch *pkgch.Client) *CHForecastStore {
	return &CHForecastStore{db: ch.DB(), ch: ch}
}

// SetLogger injects a structured logger.
func (s *CHForecastStore) SetLogger(l *applogger.Logger) { s.l = l }

// Init creates the forecast table if it does not exist.
func (s *CHForecastStore) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE DATABASE IF NOT EXISTS conflictvol`,
		`CREATE TABLE IF NOT EXISTS ` + chForecastTable + ` (
            date Date,
            commodity LowCardinality(String),
            model LowCardinality(String),
            predicted Float64,
            actual Float64
        ) ENGINE = ReplacingMergeTree
        ORDER BY (commodity, model, date)`,
	}
	return s.ch.InitSchema(ctx, stmts)
}

// StoreBatch inserts forecast records in chunks.
func (s *CHForecastStore) StoreBatch(ctx context.Context, records []models.ForecastRecord) error {
	start := time.Now()
	for lo := 0; lo < len(records); lo += chInsertChunk {
		hi := lo + chInsertChunk
		if hi > len(records) {
			hi = len(records)
		}
		if err := s.insertChunk(ctx, records[lo:hi]); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse store_batch error",
					applogger.Int("offset", lo),
					applogger.Error(err),
				)
			}
			return err
		}
	}
	if s.l != nil {
		s.l.Info("clickhouse store_batch ok",
			applogger.Int("rows", len(records)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

func (s *CHForecastStore) insertChunk(ctx context.Context, records []models.ForecastRecord) error {
	if len(records) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString("INSERT INTO " + chForecastTable + " (date, commodity, model, predicted, actual) VALUES ")
	args := make([]interface{}, 0, len(records)*5)
	for i, r := range records {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?, ?, ?)")
		args = append(args, r.Date, r.Commodity, r.Model, r.Predicted, r.Actual)
	}
	if _, err := s.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("insert forecasts: %w", err)
	}
	return nil
}

// Health pings the pool.
func (s *CHForecastStore) Health(ctx context.Context) error { return s.ch.Health(ctx) }

// Close closes the connection pool.
func (s *CHForecastStore) Close() error { return s.ch.Close() }
