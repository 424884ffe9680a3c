package di

import (
	"fmt"

	"ConflictVol/internal/dataset"
	domrepo "ConflictVol/internal/domain/repository"
	"ConflictVol/internal/handler/api"
	internalrepo "ConflictVol/internal/repository"
	"ConflictVol/internal/usecase"
	"ConflictVol/pkg/cache"
	pkgch "ConflictVol/pkg/clickhouse"
	"ConflictVol/pkg/config"
	xhttp "ConflictVol/pkg/http"
	pkgkafka "ConflictVol/pkg/kafka"
	applogger "ConflictVol/pkg/logger"
	"ConflictVol/pkg/metrics"
	"ConflictVol/pkg/server"
)

// ProvideLogger creates the root structured logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideLoader creates the raw parts loader.
func ProvideLoader(log *applogger.Logger) *dataset.Loader {
	return dataset.NewLoader(log)
}

// ProvideAssembler creates the dataset assembler.
func ProvideAssembler(log *applogger.Logger) *dataset.Assembler {
	return dataset.NewAssembler(log)
}

// ProvideCSVStore creates the CSV results sink.
func ProvideCSVStore(cfg *config.Config) *internalrepo.CSVStore {
	return internalrepo.NewCSVStore(cfg.Sinks.OutDir)
}

// ProvideForecastStore creates the ClickHouse sink, or nil when disabled.
func ProvideForecastStore(cfg *config.Config, log *applogger.Logger) (domrepo.ForecastStore, error) {
	if !cfg.Sinks.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithAddress(cfg.Sinks.ClickHouse.Host, cfg.Sinks.ClickHouse.Port),
		pkgch.WithDatabase(cfg.Sinks.ClickHouse.Database),
		pkgch.WithCredentials(cfg.Sinks.ClickHouse.User, cfg.Sinks.ClickHouse.Password),
		pkgch.WithTimeouts(cfg.Sinks.ClickHouse.DialTimeout, cfg.Sinks.ClickHouse.ReadTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	store := internalrepo.NewCHForecastStore(client)
	store.SetLogger(log)
	return store, nil
}

// ProvideForecastPublisher creates the Kafka sink, or nil when disabled.
func ProvideForecastPublisher(cfg *config.Config, log *applogger.Logger) (domrepo.ForecastPublisher, error) {
	if !cfg.Sinks.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Sinks.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Sinks.Kafka.Compression),
		pkgkafka.WithBatchSize(cfg.Sinks.Kafka.BatchSize),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	publisher := internalrepo.NewKafkaForecastPublisher(producer, cfg.Sinks.Kafka.Topic)
	publisher.SetLogger(log)
	return publisher, nil
}

// ProvideCache creates the response cache for serve mode.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if cfg.Cache.Backend == "redis" {
		return cache.NewRedisCache(cfg.Cache.Addr, "", cfg.Cache.DB)
	}
	return cache.NewMemoryCache(), nil
}

// ProvidePipelineUseCase creates the data preparation use case.
func ProvidePipelineUseCase(cfg *config.Config, loader *dataset.Loader, log *applogger.Logger, m domrepo.Metrics) *usecase.PipelineUseCase {
	return usecase.NewPipelineUseCase(cfg, loader, log, m)
}

// ProvideEvaluateUseCase creates the model comparison use case.
func ProvideEvaluateUseCase(
	cfg *config.Config,
	loader *dataset.Loader,
	assembler *dataset.Assembler,
	csv *internalrepo.CSVStore,
	store domrepo.ForecastStore,
	publisher domrepo.ForecastPublisher,
	log *applogger.Logger,
	m domrepo.Metrics,
) *usecase.EvaluateUseCase {
	return usecase.NewEvaluateUseCase(cfg, loader, assembler, csv, store, publisher, log, m)
}

// ProvideHandler creates the results API handler.
func ProvideHandler(cfg *config.Config, log *applogger.Logger, eval *usecase.EvaluateUseCase, c cache.Service) xhttp.Handler {
	return api.NewResultsEchoHandler(log, eval, c, cfg.Cache.TTL)
}

// ProvideApp creates the application.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	pipeline *usecase.PipelineUseCase,
	eval *usecase.EvaluateUseCase,
	handler xhttp.Handler,
	store domrepo.ForecastStore,
	publisher domrepo.ForecastPublisher,
) *server.App {
	return server.New(cfg, log, pipeline, eval, handler, store, publisher)
}
