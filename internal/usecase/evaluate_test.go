package usecase

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ConflictVol/internal/dataset"
	"ConflictVol/internal/repository"
	"ConflictVol/pkg/config"
	"ConflictVol/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordRefit(string)             {}
func (nopMetrics) RecordFitError(string)          {}
func (nopMetrics) RecordForecast(string)          {}
func (nopMetrics) RecordRows(string, int)         {}
func (nopMetrics) RecordDuration(string, float64) {}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stdout"})
	require.NoError(t, err)
	return l
}

// writeSyntheticInputs lays out a raw data directory with one commodity part
// and a small conflict file.
func writeSyntheticInputs(t *testing.T, root string, days int) {
	t.Helper()
	partsDir := filepath.Join(root, "commodities", "gold")
	require.NoError(t, os.MkdirAll(partsDir, 0o755))

	base := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	content := "\"Date\",\"Price\"\n"
	for i := 0; i < days; i++ {
		d := base.AddDate(0, 0, i)
		price := 100 * (1 + 0.05*math.Sin(float64(i)/3))
		content += fmt.Sprintf("\"%s\",\"%.4f\"\n", d.Format("01/02/2006"), price)
	}
	require.NoError(t, os.WriteFile(filepath.Join(partsDir, "part1.csv"), []byte(content), 0o644))

	ged := "id,date_start,country,region,type_of_violence,conflict_name,best\n"
	for i := 0; i < days; i += 10 {
		d := base.AddDate(0, 0, i)
		ged += fmt.Sprintf("%d,%s,Iraq,Middle East,1,Conflict A,%d\n", i, d.Format("2006-01-02"), 5+i%20)
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "conflicts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "conflicts", "ged.csv"), []byte(ged), 0o644))
}

func evaluateConfig(root, outDir string) *config.Config {
	cfg := &config.Config{}
	cfg.Data.RawCommoditiesDir = filepath.Join(root, "commodities")
	cfg.Data.RawConflictFile = filepath.Join(root, "conflicts", "ged.csv")
	cfg.Data.Commodities = []config.Commodity{
		{Name: "gold", PartsDir: "gold", ConflictProxy: "global"},
	}
	cfg.Features.RVWeeklyWindow = 5
	cfg.Features.RVMonthlyWindow = 22
	cfg.Features.EWMALambdas = []float64{0.94, 0.97}
	cfg.Features.ShockPercentile = 0.95
	cfg.Features.ShockMinHistoryDays = 30
	cfg.Features.ConflictLags = []int{1}
	cfg.Features.StartDate = "2015-01-01"
	cfg.Features.EndDate = "2015-12-31"
	cfg.Evaluation.TrainingWindow = 60
	cfg.Evaluation.Horizon = 1
	cfg.Evaluation.StartDate = "2015-01-01"
	cfg.Evaluation.EndDate = "2015-12-31"
	cfg.Evaluation.Seed = 42
	cfg.Evaluation.EpsilonFloor = 0.001
	cfg.Evaluation.DMMinObs = 30
	cfg.Evaluation.Models = []config.ModelCfg{
		{Name: "HAR", Kind: "har", RefitCadenceDays: 5},
		{Name: "HAR-X", Kind: "har-x", RefitCadenceDays: 5},
		{Name: "GARCH", Kind: "garch", RefitCadenceDays: 5},
		{Name: "RandomForest", Kind: "random_forest", RefitCadenceDays: 25},
	}
	cfg.Evaluation.RandomForest.Trees = 10
	cfg.Evaluation.RandomForest.MaxDepth = 5
	cfg.Evaluation.RandomForest.MinLeaf = 5
	cfg.Sinks.OutDir = outDir
	return cfg
}

func TestEvaluateUseCaseEndToEnd(t *testing.T) {
	root := t.TempDir()
	outDir := filepath.Join(root, "results")
	writeSyntheticInputs(t, root, 280)

	log := testLogger(t)
	cfg := evaluateConfig(root, outDir)
	uc := NewEvaluateUseCase(cfg, dataset.NewLoader(log), dataset.NewAssembler(log),
		repository.NewCSVStore(outDir), nil, nil, log, nopMetrics{})

	require.NoError(t, uc.Run(context.Background()))

	res, ok := uc.Result("gold")
	require.True(t, ok)
	assert.Equal(t, []string{"gold"}, uc.Commodities())

	require.Len(t, res.Forecasts, 4)
	for model, records := range res.Forecasts {
		assert.NotEmpty(t, records, "model %s produced no forecasts", model)
		for i := 1; i < len(records); i++ {
			assert.True(t, records[i-1].Date.Before(records[i].Date), "model %s out of order", model)
		}
	}

	// Common-sample scoring: every model summarized over the same N.
	require.Len(t, res.Summaries, 4)
	n := res.Summaries[0].N + res.Summaries[0].Excluded
	for _, s := range res.Summaries {
		assert.Equal(t, n, s.N+s.Excluded, "model %s scored on a different sample", s.Model)
	}

	// All pairwise comparisons for four models.
	assert.Len(t, res.DM, 6)

	for _, name := range []string{
		"forecasts_gold.csv", "losses_gold.csv", "loss_summary_gold.csv", "dm_gold.csv",
	} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, err, "missing artifact %s", name)
	}
}

func TestEvaluateUseCaseIsReproducible(t *testing.T) {
	root := t.TempDir()
	writeSyntheticInputs(t, root, 280)
	log := testLogger(t)

	run := func(out string) map[string][]float64 {
		cfg := evaluateConfig(root, out)
		uc := NewEvaluateUseCase(cfg, dataset.NewLoader(log), dataset.NewAssembler(log),
			repository.NewCSVStore(out), nil, nil, log, nopMetrics{})
		require.NoError(t, uc.Run(context.Background()))
		res, ok := uc.Result("gold")
		require.True(t, ok)
		preds := map[string][]float64{}
		for model, records := range res.Forecasts {
			for _, r := range records {
				preds[model] = append(preds[model], r.Predicted)
			}
		}
		return preds
	}

	first := run(filepath.Join(root, "out1"))
	second := run(filepath.Join(root, "out2"))
	assert.Equal(t, first, second, "same seed and inputs must reproduce forecasts exactly")
}

func TestEvaluateUseCaseUnknownProxy(t *testing.T) {
	root := t.TempDir()
	writeSyntheticInputs(t, root, 280)
	log := testLogger(t)

	cfg := evaluateConfig(root, filepath.Join(root, "results"))
	cfg.Data.Commodities[0].ConflictProxy = "atlantis"
	uc := NewEvaluateUseCase(cfg, dataset.NewLoader(log), dataset.NewAssembler(log),
		repository.NewCSVStore(cfg.Sinks.OutDir), nil, nil, log, nopMetrics{})

	assert.Error(t, uc.Run(context.Background()))
}
