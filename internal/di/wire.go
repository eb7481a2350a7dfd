//go:build wireinject
// +build wireinject

package di

import (
	"RegimeEdge/pkg/config"
	"RegimeEdge/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideCache,

		// Repositories
		ProvidePriceStore,
		ProvideYahooProvider,
		ProvidePriceProvider,
		ProvideSignalPublisher,

		// Analytics and use cases
		ProvideScoreCache,
		ProvideClassifier,
		ProvideRegimeService,
		ProvideSignalGenerator,
		ProvideSignalService,

		// Transport
		ProvideSignalHandler,
		ProvideHTTPServer,

		// Application
		ProvideApp,
	)
	return &server.App{}, nil
}
