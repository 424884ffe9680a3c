package repository

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ConflictVol/internal/domain/models"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVStoreWriteForecasts(t *testing.T) {
	dir := t.TempDir()
	store := NewCSVStore(filepath.Join(dir, "nested", "results"))

	date := time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)
	err := store.WriteForecasts("gold", []models.ForecastRecord{
		{Date: date, Commodity: "gold", Model: "HAR", Predicted: 0.0125, Actual: 0.011},
	})
	require.NoError(t, err)

	rows := readCSV(t, filepath.Join(dir, "nested", "results", "forecasts_gold.csv"))
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"date", "commodity", "model", "predicted", "actual"}, rows[0])
	assert.Equal(t, []string{"2021-03-04", "gold", "HAR", "0.0125", "0.011"}, rows[1])
}

func TestCSVStoreWriteSummariesAndDM(t *testing.T) {
	dir := t.TempDir()
	store := NewCSVStore(dir)

	require.NoError(t, store.WriteSummaries("gold", []models.LossSummary{
		{Model: "HAR", MeanQLIKE: -4.2, MeanSquared: 1e-6, N: 100, Excluded: 2},
	}))
	rows := readCSV(t, filepath.Join(dir, "loss_summary_gold.csv"))
	require.Len(t, rows, 2)
	assert.Equal(t, "HAR", rows[1][0])
	assert.Equal(t, "100", rows[1][3])
	assert.Equal(t, "2", rows[1][4])

	require.NoError(t, store.WriteDMResults("gold", []models.DMResult{
		{ModelA: "HAR", ModelB: "GARCH", Statistic: -2.1, PValue: 0.036, N: 100, Lags: 0},
	}))
	rows = readCSV(t, filepath.Join(dir, "dm_gold.csv"))
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"HAR", "GARCH", "-2.1", "0.036", "100", "0"}, rows[1])
}

func TestCSVStoreEmptyBatchStillWritesHeader(t *testing.T) {
	dir := t.TempDir()
	store := NewCSVStore(dir)

	require.NoError(t, store.WriteLosses("gold", nil))
	rows := readCSV(t, filepath.Join(dir, "losses_gold.csv"))
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"date", "model", "qlike", "squared_error"}, rows[0])
}
