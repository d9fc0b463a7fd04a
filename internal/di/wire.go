//go:build wireinject
// +build wireinject

package di

import (
	"CryptoPredict/internal/usecase"
	"CryptoPredict/pkg/config"
	"CryptoPredict/pkg/logger"
	"CryptoPredict/pkg/server"

	"github.com/google/wire"
)

var sourceSet = wire.NewSet(
	ProvideMetrics,
	ProvideRefData,
	ProvideBinanceClient,
	ProvideFinnhubClient,
	ProvideKronosRunner,
	ProvideBinanceSource,
	ProvideSources,
	ProvideCascade,
)

// InitializeApp wires up all dependencies and returns the application.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,

		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideClickHouseClient,
		ProvideCounter,
		ProvideForecastSink,

		sourceSet,

		ProvideMarketService,
		ProvideLimits,
		ProvideHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}

// InitializeCascade builds a cascade with no event sinks for one-shot use.
func InitializeCascade(cfg *config.Config, l *logger.Logger) (*usecase.Cascade, error) {
	wire.Build(
		ProvideNopSink,
		sourceSet,
	)
	return &usecase.Cascade{}, nil
}
