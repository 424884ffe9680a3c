package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ConflictVol/internal/dataset"
	domrepo "ConflictVol/internal/domain/repository"
	"ConflictVol/pkg/config"
	"ConflictVol/pkg/logger"
	"ConflictVol/pkg/util"
)

// PipelineUseCase turns the raw inputs into the processed artifacts the
// evaluation consumes: one clean price series and one realized-volatility
// series per commodity, plus the daily conflict panels.
type PipelineUseCase struct {
	cfg     *config.Config
	loader  *dataset.Loader
	log     *logger.Logger
	metrics domrepo.Metrics
}

func NewPipelineUseCase(cfg *config.Config, loader *dataset.Loader, log *logger.Logger, metrics domrepo.Metrics) *PipelineUseCase {
	return &PipelineUseCase{cfg: cfg, loader: loader, log: log.Component("pipeline"), metrics: metrics}
}

// Run executes the full data preparation pass and writes every artifact under
// the processed directory.
func (uc *PipelineUseCase) Run(ctx context.Context) error {
	start := time.Now()
	outDir := uc.cfg.Data.ProcessedDir
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", outDir, err)
	}

	for _, cm := range uc.cfg.Data.Commodities {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := uc.processCommodity(cm, outDir); err != nil {
			return fmt.Errorf("commodity %s: %w", cm.Name, err)
		}
	}

	if err := uc.buildConflictPanels(outDir); err != nil {
		return err
	}

	uc.metrics.RecordDuration("pipeline", time.Since(start).Seconds())
	uc.log.Info("pipeline complete",
		logger.String("out_dir", outDir),
		logger.Duration("elapsed", time.Since(start)))
	return nil
}

func (uc *PipelineUseCase) processCommodity(cm config.Commodity, outDir string) error {
	partsDir := filepath.Join(uc.cfg.Data.RawCommoditiesDir, cm.PartsDir)
	clean, err := uc.loader.LoadParts(partsDir)
	if err != nil {
		return err
	}
	uc.metrics.RecordRows("clean_"+cm.Name, len(clean))

	if err := dataset.WriteClean(filepath.Join(outDir, "clean_"+cm.Name+".csv"), clean); err != nil {
		return err
	}

	features, err := dataset.BuildFeatures(clean, uc.cfg.Features.RVWeeklyWindow, uc.cfg.Features.RVMonthlyWindow)
	if err != nil {
		return err
	}
	uc.metrics.RecordRows("features_"+cm.Name, len(features))

	if err := dataset.WriteFeatures(filepath.Join(outDir, "rv_"+cm.Name+".csv"), features); err != nil {
		return err
	}

	uc.log.Info("commodity processed",
		logger.String("commodity", cm.Name),
		logger.Int("clean_rows", len(clean)),
		logger.Int("feature_rows", len(features)))
	return nil
}

func (uc *PipelineUseCase) buildConflictPanels(outDir string) error {
	startDate, ok := util.ParseISODate(uc.cfg.Features.StartDate)
	if !ok {
		return fmt.Errorf("invalid features.start_date %q", uc.cfg.Features.StartDate)
	}
	endDate, ok := util.ParseISODate(uc.cfg.Features.EndDate)
	if !ok {
		return fmt.Errorf("invalid features.end_date %q", uc.cfg.Features.EndDate)
	}

	events, err := dataset.ReduceGED(uc.cfg.Data.RawConflictFile, startDate, uc.log)
	if err != nil {
		return err
	}
	uc.metrics.RecordRows("conflict_events", len(events))

	panels := dataset.BuildConflictIndices(events, dataset.IndexParams{
		Start:             startDate,
		End:               endDate,
		KeepRegions:       uc.cfg.Features.KeepRegions,
		OilFocusCountries: uc.cfg.Features.OilFocusCountries,
		GasFocusCountries: uc.cfg.Features.GasFocusCountries,
		Panel: dataset.PanelParams{
			Lambdas:         uc.cfg.Features.EWMALambdas,
			ShockPercentile: uc.cfg.Features.ShockPercentile,
			ShockMinHistory: uc.cfg.Features.ShockMinHistoryDays,
		},
	}, uc.log)

	for tag, panel := range panels {
		path := filepath.Join(outDir, "conflict_"+tag+".csv")
		if err := dataset.WritePanel(path, panel); err != nil {
			return fmt.Errorf("panel %s: %w", tag, err)
		}
	}
	return nil
}
