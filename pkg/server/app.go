package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	domrepo "ConflictVol/internal/domain/repository"
	"ConflictVol/internal/usecase"
	"ConflictVol/pkg/config"
	xhttp "ConflictVol/pkg/http"
	applogger "ConflictVol/pkg/logger"
)

// Run modes.
const (
	ModePipeline = "pipeline"
	ModeEvaluate = "evaluate"
	ModeServe    = "serve"
)

// App encapsulates the application lifecycle across its three run modes:
// pipeline prepares data, evaluate runs the model comparison, serve runs the
// comparison and keeps the results available over HTTP.
type App struct {
	cfg      *config.Config
	log      *applogger.Logger
	pipeline *usecase.PipelineUseCase
	eval     *usecase.EvaluateUseCase
	handler  xhttp.Handler

	store     domrepo.ForecastStore
	publisher domrepo.ForecastPublisher
}

// New creates an App with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	pipeline *usecase.PipelineUseCase,
	eval *usecase.EvaluateUseCase,
	handler xhttp.Handler,
	store domrepo.ForecastStore,
	publisher domrepo.ForecastPublisher,
) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		pipeline:  pipeline,
		eval:      eval,
		handler:   handler,
		store:     store,
		publisher: publisher,
	}
}

// Run executes the requested mode and blocks until done (or, in serve mode,
// until interrupted).
func (a *App) Run(mode string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer a.closeSinks()

	switch mode {
	case ModePipeline:
		return a.pipeline.Run(ctx)
	case ModeEvaluate:
		return a.eval.Run(ctx)
	case ModeServe:
		return a.serve(ctx)
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

func (a *App) serve(ctx context.Context) error {
	if err := a.eval.Run(ctx); err != nil {
		return err
	}

	metricsPath := ""
	if a.cfg.Metrics.Enabled {
		metricsPath = a.cfg.Metrics.Path
	}
	srv := xhttp.NewServer(a.log, a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
	)
	srv.Start()
	a.log.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-srv.Err():
		a.log.Error("http server error", applogger.Error(err))
		return err
	case sig := <-sigCh:
		a.log.Info("shutdown signal received", applogger.String("signal", sig.String()))
	}
	return srv.Stop(ctx)
}

func (a *App) closeSinks() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("forecast store close error", applogger.Error(err))
		}
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("forecast publisher close error", applogger.Error(err))
		}
	}
}
