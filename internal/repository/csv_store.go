package repository

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"ConflictVol/internal/domain/models"
)

// CSVStore writes evaluation artifacts as CSV files under a base directory.
// It is the default sink and needs no external services.
type CSVStore struct {
	dir string
}

func NewCSVStore(dir string) *CSVStore {
	return &CSVStore{dir: dir}
}

// WriteForecasts writes forecast records for one commodity.
func (s *CSVStore) WriteForecasts(commodity string, records []models.ForecastRecord) error {
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, []string{"date", "commodity", "model", "predicted", "actual"})
	for _, r := range records {
		rows = append(rows, []string{
			r.Date.Format("2006-01-02"),
			r.Commodity,
			r.Model,
			formatFloat(r.Predicted),
			formatFloat(r.Actual),
		})
	}
	return s.writeFile(fmt.Sprintf("forecasts_%s.csv", commodity), rows)
}

// WriteLosses writes per-date loss records for one commodity.
func (s *CSVStore) WriteLosses(commodity string, records []models.LossRecord) error {
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, []string{"date", "model", "qlike", "squared_error"})
	for _, r := range records {
		rows = append(rows, []string{
			r.Date.Format("2006-01-02"),
			r.Model,
			formatFloat(r.QLIKE),
			formatFloat(r.SquaredError),
		})
	}
	return s.writeFile(fmt.Sprintf("losses_%s.csv", commodity), rows)
}

// WriteSummaries writes per-model loss summaries for one commodity.
func (s *CSVStore) WriteSummaries(commodity string, summaries []models.LossSummary) error {
	rows := make([][]string, 0, len(summaries)+1)
	rows = append(rows, []string{"model", "mean_qlike", "mean_squared_error", "n", "excluded"})
	for _, r := range summaries {
		rows = append(rows, []string{
			r.Model,
			formatFloat(r.MeanQLIKE),
			formatFloat(r.MeanSquared),
			strconv.Itoa(r.N),
			strconv.Itoa(r.Excluded),
		})
	}
	return s.writeFile(fmt.Sprintf("loss_summary_%s.csv", commodity), rows)
}

// WriteDMResults writes pairwise Diebold-Mariano comparisons for one commodity.
func (s *CSVStore) WriteDMResults(commodity string, results []models.DMResult) error {
	rows := make([][]string, 0, len(results)+1)
	rows = append(rows, []string{"model_a", "model_b", "statistic", "p_value", "n", "lags"})
	for _, r := range results {
		rows = append(rows, []string{
			r.ModelA,
			r.ModelB,
			formatFloat(r.Statistic),
			formatFloat(r.PValue),
			strconv.Itoa(r.N),
			strconv.Itoa(r.Lags),
		})
	}
	return s.writeFile(fmt.Sprintf("dm_%s.csv", commodity), rows)
}

func (s *CSVStore) writeFile(name string, rows [][]string) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", s.dir, err)
	}
	path := filepath.Join(s.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
