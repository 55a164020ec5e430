//go:build wireinject
// +build wireinject

package di

import (
	"IdxLens/pkg/config"
	"IdxLens/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideMetrics,
		ProvideClickHouseClient,
		ProvideCaches,

		// Repositories
		ProvideRecordBackend,
		ProvideRecordStore,
		ProvideRecordWriter,
		ProvideReportPublisher,

		// Services and use cases
		ProvideForecastEngine,
		ProvideRecordsUseCase,
		ProvideAnalysisUseCase,
		ProvideIngestHandler,

		// Transport
		ProvideAPIHandler,
		ProvideKafkaConsumer,
		ProvideScheduler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
