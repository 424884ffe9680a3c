package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"ConflictVol/internal/dataset"
	"ConflictVol/internal/domain/models"
	domrepo "ConflictVol/internal/domain/repository"
	"ConflictVol/internal/evaluator"
	"ConflictVol/internal/repository"
	"ConflictVol/internal/services/estimators"
	"ConflictVol/internal/stats"
	"ConflictVol/pkg/config"
	"ConflictVol/pkg/logger"
	"ConflictVol/pkg/util"
)

// CommodityResult holds everything one commodity's evaluation produced.
type CommodityResult struct {
	Commodity string
	Forecasts map[string][]models.ForecastRecord
	Losses    map[string][]models.LossRecord
	Summaries []models.LossSummary
	DM        []models.DMResult
	Stats     []evaluator.RunStats
}

// EvaluateUseCase runs the walk-forward comparison for every configured
// commodity and model, scores the forecasts on a common sample, and fans the
// results out to the configured sinks. Results stay resident for serving.
type EvaluateUseCase struct {
	cfg       *config.Config
	loader    *dataset.Loader
	assembler *dataset.Assembler
	log       *logger.Logger
	metrics   domrepo.Metrics

	csv       *repository.CSVStore
	store     domrepo.ForecastStore     // optional
	publisher domrepo.ForecastPublisher // optional

	mu      sync.RWMutex
	results map[string]*CommodityResult
}

func NewEvaluateUseCase(
	cfg *config.Config,
	loader *dataset.Loader,
	assembler *dataset.Assembler,
	csv *repository.CSVStore,
	store domrepo.ForecastStore,
	publisher domrepo.ForecastPublisher,
	log *logger.Logger,
	metrics domrepo.Metrics,
) *EvaluateUseCase {
	return &EvaluateUseCase{
		cfg:       cfg,
		loader:    loader,
		assembler: assembler,
		csv:       csv,
		store:     store,
		publisher: publisher,
		log:       log.Component("evaluate"),
		metrics:   metrics,
		results:   make(map[string]*CommodityResult),
	}
}

// Run evaluates every configured commodity.
func (uc *EvaluateUseCase) Run(ctx context.Context) error {
	start := time.Now()

	featStart, ok := util.ParseISODate(uc.cfg.Features.StartDate)
	if !ok {
		return fmt.Errorf("invalid features.start_date %q", uc.cfg.Features.StartDate)
	}
	featEnd, ok := util.ParseISODate(uc.cfg.Features.EndDate)
	if !ok {
		return fmt.Errorf("invalid features.end_date %q", uc.cfg.Features.EndDate)
	}
	evalStart, ok := util.ParseISODate(uc.cfg.Evaluation.StartDate)
	if !ok {
		return fmt.Errorf("invalid evaluation.start_date %q", uc.cfg.Evaluation.StartDate)
	}
	evalEnd, ok := util.ParseISODate(uc.cfg.Evaluation.EndDate)
	if !ok {
		return fmt.Errorf("invalid evaluation.end_date %q", uc.cfg.Evaluation.EndDate)
	}

	events, err := dataset.ReduceGED(uc.cfg.Data.RawConflictFile, featStart, uc.log)
	if err != nil {
		return err
	}
	panels := dataset.BuildConflictIndices(events, dataset.IndexParams{
		Start:             featStart,
		End:               featEnd,
		KeepRegions:       uc.cfg.Features.KeepRegions,
		OilFocusCountries: uc.cfg.Features.OilFocusCountries,
		GasFocusCountries: uc.cfg.Features.GasFocusCountries,
		Panel: dataset.PanelParams{
			Lambdas:         uc.cfg.Features.EWMALambdas,
			ShockPercentile: uc.cfg.Features.ShockPercentile,
			ShockMinHistory: uc.cfg.Features.ShockMinHistoryDays,
		},
	}, uc.log)

	if uc.store != nil {
		if err := uc.store.Init(ctx); err != nil {
			return fmt.Errorf("init forecast store: %w", err)
		}
	}

	for _, cm := range uc.cfg.Data.Commodities {
		if err := ctx.Err(); err != nil {
			return err
		}
		panel, ok := panels[cm.ConflictProxy]
		if !ok {
			return fmt.Errorf("commodity %s: no conflict panel %q", cm.Name, cm.ConflictProxy)
		}
		res, err := uc.evaluateCommodity(ctx, cm, panel, evalStart, evalEnd)
		if err != nil {
			return fmt.Errorf("commodity %s: %w", cm.Name, err)
		}
		uc.mu.Lock()
		uc.results[cm.Name] = res
		uc.mu.Unlock()
	}

	uc.metrics.RecordDuration("evaluate", time.Since(start).Seconds())
	uc.log.Info("evaluation complete",
		logger.Int("commodities", len(uc.cfg.Data.Commodities)),
		logger.Duration("elapsed", time.Since(start)))
	return nil
}

func (uc *EvaluateUseCase) evaluateCommodity(ctx context.Context, cm config.Commodity, panel *dataset.Panel, evalStart, evalEnd time.Time) (*CommodityResult, error) {
	clean, err := uc.loader.LoadParts(filepath.Join(uc.cfg.Data.RawCommoditiesDir, cm.PartsDir))
	if err != nil {
		return nil, err
	}
	features, err := dataset.BuildFeatures(clean, uc.cfg.Features.RVWeeklyWindow, uc.cfg.Features.RVMonthlyWindow)
	if err != nil {
		return nil, err
	}

	ds, err := uc.assembler.Assemble(features, panel, dataset.AssembleParams{
		Commodity:    cm.Name,
		ProxyTag:     cm.ConflictProxy,
		ProxyColumns: uc.proxyColumns(),
		Lags:         uc.cfg.Features.ConflictLags,
		Horizon:      uc.cfg.Evaluation.Horizon,
	})
	if err != nil {
		return nil, err
	}
	if len(ds.Rows) == 0 {
		return nil, fmt.Errorf("assembled dataset is empty")
	}
	// Keep the full history through the evaluation end so every eval date has
	// its training window; the eval start is enforced on the forecasts.
	ds = dataset.Slice(ds, ds.Rows[0].Date, evalEnd)

	walker := evaluator.New(evaluator.Config{
		TrainingWindow: uc.cfg.Evaluation.TrainingWindow,
		Horizon:        uc.cfg.Evaluation.Horizon,
		Expanding:      uc.cfg.Evaluation.Expanding,
	}, uc.log, uc.metrics)

	res := &CommodityResult{
		Commodity: cm.Name,
		Forecasts: make(map[string][]models.ForecastRecord),
		Losses:    make(map[string][]models.LossRecord),
	}

	for _, mc := range uc.cfg.Evaluation.Models {
		spec := models.ModelSpec{
			Name:             mc.Name,
			Kind:             models.EstimatorKind(mc.Kind),
			FeatureSet:       uc.resolveFeatures(mc, ds.ConflictColumns),
			RefitCadenceDays: mc.RefitCadenceDays,
		}
		est, err := estimators.FromSpec(spec, estimators.ForestParams{
			Trees:    uc.cfg.Evaluation.RandomForest.Trees,
			MaxDepth: uc.cfg.Evaluation.RandomForest.MaxDepth,
			MinLeaf:  uc.cfg.Evaluation.RandomForest.MinLeaf,
			Seed:     uc.cfg.Evaluation.Seed,
		})
		if err != nil {
			return nil, err
		}
		records, runStats, err := walker.Run(ds, spec, est)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", spec.Name, err)
		}
		res.Forecasts[spec.Name] = clipDates(records, evalStart, evalEnd)
		res.Stats = append(res.Stats, runStats)
	}

	uc.score(res)
	if err := uc.flush(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// score computes losses on the common sample and the pairwise DM comparisons.
func (uc *EvaluateUseCase) score(res *CommodityResult) {
	eps := uc.cfg.Evaluation.EpsilonFloor
	common := stats.CommonSample(res.Forecasts)

	names := make([]string, 0, len(common))
	for name := range common {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		losses := stats.Score(common[name], eps)
		res.Losses[name] = losses
		res.Summaries = append(res.Summaries, stats.Summarize(name, losses))
	}

	lags := uc.cfg.Evaluation.NWLags
	if lags <= 0 {
		lags = uc.cfg.Evaluation.Horizon - 1
	}
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			dm, err := stats.DieboldMariano(res.Losses[names[i]], res.Losses[names[j]], lags, uc.cfg.Evaluation.DMMinObs)
			if err != nil {
				if errors.Is(err, stats.ErrTooFewObservations) {
					uc.log.Warn("dm comparison skipped",
						logger.String("commodity", res.Commodity),
						logger.String("model_a", names[i]),
						logger.String("model_b", names[j]),
						logger.Error(err))
					continue
				}
				uc.log.Error("dm comparison failed",
					logger.String("commodity", res.Commodity),
					logger.String("model_a", names[i]),
					logger.String("model_b", names[j]),
					logger.Error(err))
				continue
			}
			res.DM = append(res.DM, dm)
		}
	}
}

// flush writes the commodity's results to every configured sink.
func (uc *EvaluateUseCase) flush(ctx context.Context, res *CommodityResult) error {
	all := make([]models.ForecastRecord, 0)
	allLosses := make([]models.LossRecord, 0)
	names := make([]string, 0, len(res.Forecasts))
	for name := range res.Forecasts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		all = append(all, res.Forecasts[name]...)
		allLosses = append(allLosses, res.Losses[name]...)
	}

	if err := uc.csv.WriteForecasts(res.Commodity, all); err != nil {
		return err
	}
	if err := uc.csv.WriteLosses(res.Commodity, allLosses); err != nil {
		return err
	}
	if err := uc.csv.WriteSummaries(res.Commodity, res.Summaries); err != nil {
		return err
	}
	if err := uc.csv.WriteDMResults(res.Commodity, res.DM); err != nil {
		return err
	}

	if uc.store != nil {
		if err := uc.store.StoreBatch(ctx, all); err != nil {
			return fmt.Errorf("store forecasts: %w", err)
		}
	}
	if uc.publisher != nil {
		if err := uc.publisher.PublishBatch(ctx, all); err != nil {
			return fmt.Errorf("publish forecasts: %w", err)
		}
	}

	uc.log.Info("results flushed",
		logger.String("commodity", res.Commodity),
		logger.Int("forecasts", len(all)),
		logger.Int("dm_pairs", len(res.DM)))
	return nil
}

// proxyColumns lists the derived panel columns that enter the design matrix.
// Raw fatality counts stay out; the log and smoothed transforms carry the
// signal.
func (uc *EvaluateUseCase) proxyColumns() []string {
	cols := []string{"log_fatal", "fatal_shock"}
	for _, lam := range uc.cfg.Features.EWMALambdas {
		suffix := fmt.Sprintf("ewma_%d", int(lam*100))
		cols = append(cols, "log_fatal_"+suffix, "fatal_shock_"+suffix)
	}
	return cols
}

// resolveFeatures expands a model's configured feature list. An empty list
// means the HAR components; conflict-aware kinds get the lagged conflict
// columns appended.
func (uc *EvaluateUseCase) resolveFeatures(mc config.ModelCfg, conflictCols []string) []string {
	base := mc.Features
	if len(base) == 0 {
		base = []string{models.FeatureRVDaily, models.FeatureRVWeekly, models.FeatureRVMonthly}
	}
	kind := models.EstimatorKind(mc.Kind)
	if kind == models.KindHARX || kind == models.KindRandomForest {
		out := make([]string, 0, len(base)+len(conflictCols))
		out = append(out, base...)
		out = append(out, conflictCols...)
		return out
	}
	return base
}

// Result returns the resident evaluation output for one commodity.
func (uc *EvaluateUseCase) Result(commodity string) (*CommodityResult, bool) {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	res, ok := uc.results[commodity]
	return res, ok
}

// Commodities lists commodities with resident results, sorted.
func (uc *EvaluateUseCase) Commodities() []string {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	names := make([]string, 0, len(uc.results))
	for name := range uc.results {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func clipDates(records []models.ForecastRecord, start, end time.Time) []models.ForecastRecord {
	out := make([]models.ForecastRecord, 0, len(records))
	for _, r := range records {
		if r.Date.Before(start) || r.Date.After(end) {
			continue
		}
		out = append(out, r)
	}
	return out
}
