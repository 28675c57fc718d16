//go:build wireinject
// +build wireinject

package di

import (
	"CreditRisk/pkg/config"
	"CreditRisk/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideClickHouseClient,
		ProvideCacheService,

		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Domain
		ProvideCatalog,
		ProvideAssembler,
		ProvideModel,

		// Repositories
		ProvidePredictionCache,
		ProvideAuditRecorder,
		ProvideAuditQueue,
		ProvideAuditIngest,

		// Use cases
		ProvideRiskAssessor,

		// HTTP
		ProvideLimiter,
		ProvideAllower,
		ProvideHandlers,
		ProvideHTTPServer,

		// Application server
		ProvideResources,
		ProvideApp,
	)
	return &server.App{}, nil
}
