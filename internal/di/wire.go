//go:build wireinject
// +build wireinject

package di

import (
	"TurtleDesk/pkg/config"
	"TurtleDesk/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideDatabase,
		ProvideRedis,
		ProvideCache,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideClickHouseClient,

		// Repositories and adapters
		ProvideStore,
		ProvideMarketData,
		ProvideEventStore,
		ProvideEventPublisher,
		ProvideHub,
		ProvideNotifier,
		ProvideLimiter,

		// Use cases
		ProvideSignalEventProcessor,
		ProvideNotifyUseCase,
		ProvideQueue,
		ProvidePipeline,
		ProvideDispatcher,
		ProvideAnalyzeUseCase,
		ProvideStocksUseCase,
		ProvideBatchUseCase,
		ProvideEventsUseCase,
		ProvideKafkaSignalsHandler,

		// HTTP
		ProvideAPIHandler,
		ProvideWebHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
