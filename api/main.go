package api

import (
	"go.uber.org/fx"

	alertsRepository "github.com/tidepool-org/vitals/alerts/repository"
	"github.com/tidepool-org/vitals/auth"
	"github.com/tidepool-org/vitals/authz"
	"github.com/tidepool-org/vitals/config"
	"github.com/tidepool-org/vitals/limits"
	limitsRepository "github.com/tidepool-org/vitals/limits/repository"
	"github.com/tidepool-org/vitals/logger"
	"github.com/tidepool-org/vitals/monitor"
	"github.com/tidepool-org/vitals/source"
	"github.com/tidepool-org/vitals/store"
)

// Dependencies returns the providers of the service without the http server
func Dependencies() []fx.Option {
	return []fx.Option{
		fx.Provide(
			logger.NewProductionLogger,
			logger.Suggar,
			config.NewConfig,
			store.NewConfig,
			store.GetConnectionString,
			store.NewClient,
			store.NewDatabase,
			source.NewClientConfig,
			fx.Annotate(source.NewClient, fx.As(new(source.Source))),
			limitsRepository.NewRepository,
			limits.NewService,
			alertsRepository.NewRepository,
			monitor.NewMonitor,
			auth.NewConfig,
			auth.NewAuthenticator,
			authz.NewRequestAuthorizer,
		),
	}
}

func MainLoop() {
	deps := append(Dependencies(),
		fx.Provide(
			NewHealthCheck,
			NewHandler,
			NewServer,
		),
		fx.Invoke(SetReady),
		fx.Invoke(Start),
	)
	fx.New(deps...).Run()
}
