//go:build wireinject
// +build wireinject

package di

import (
	"RatePulse/pkg/config"
	"RatePulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Metrics
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideSnapshotCache,

		// Pricing engine
		ProvideStateStore,
		ProvideEstimator,
		ProvideEstimatorService,
		ProvideForecaster,
		ProvideCalibrator,
		ProvidePolicy,
		ProvidePredictionLog,

		// Repositories (with business logic)
		ProvideOutcomeArchive,
		ProvideQuotePublisher,
		ProvideRateStream,

		// Use cases
		ProvideQuoteService,
		ProvideOutcomeIngestor,
		ProvideKafkaOutcomesHandler,
		ProvideRateProcessor,
		ProvideRateCollector,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
