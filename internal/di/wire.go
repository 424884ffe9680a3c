//go:build wireinject
// +build wireinject

package di

import (
	"ConflictVol/pkg/config"
	"ConflictVol/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation in wire_gen.go.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		ProvideLoader,
		ProvideAssembler,

		ProvideCSVStore,
		ProvideForecastStore,
		ProvideForecastPublisher,
		ProvideCache,

		ProvidePipelineUseCase,
		ProvideEvaluateUseCase,
		ProvideHandler,

		ProvideApp,
	)
	return &server.App{}, nil
}
