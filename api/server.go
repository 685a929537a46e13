package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/brpaz/echozap"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echomiddleware "github.com/oapi-codegen/echo-middleware"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tidepool-org/vitals/auth"
	"github.com/tidepool-org/vitals/authz"
	"github.com/tidepool-org/vitals/config"
	errs "github.com/tidepool-org/vitals/errors"
)

func Start(e *echo.Echo, cfg *config.Config, logger *zap.SugaredLogger, lifecycle fx.Lifecycle) {
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				address := fmt.Sprintf(":%d", cfg.HttpPort)
				if err := e.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Errorw("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return e.Shutdown(ctx)
		},
	})
}

func SetReady(healthCheck *HealthCheck, db *mongo.Database, lifecycle fx.Lifecycle) {
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := db.Client().Ping(ctx, nil); err != nil {
				return err
			}

			// Set after the repositories created their indexes, lifecycle hooks run in
			// topological order
			healthCheck.SetReady(true)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			healthCheck.SetReady(false)
			return nil
		},
	})
}

type ServerParams struct {
	fx.In

	Handler       *Handler
	HealthCheck   *HealthCheck
	Authorizer    authz.RequestAuthorizer
	Authenticator auth.Authenticator
	Logger        *zap.Logger
}

func NewServer(p ServerParams) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true

	swagger, err := GetSwagger()
	if err != nil {
		return nil, err
	}

	// Do not validate servers in the open api spec
	swagger.Servers = nil

	// Skip auth, validation and logging for the readiness probe
	skipper := RouteSkipper("/ready")

	authMiddleware := auth.NewAuthMiddleware(p.Authenticator, auth.AuthMiddlewareOpts{
		Skipper: skipper,
	})
	requestValidator := echomiddleware.OapiRequestValidatorWithOptions(swagger, &echomiddleware.Options{
		Options: openapi3filter.Options{
			AuthenticationFunc: p.Authorizer.Authorize,
		},
		Skipper: skipper,
	})
	requestId := middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	})

	e.Use(middleware.Recover())
	e.Use(requestId)
	e.Use(skipped(skipper, echozap.ZapLogger(p.Logger)))
	e.Use(authMiddleware)
	e.Use(requestValidator)

	e.HTTPErrorHandler = errs.CustomHTTPErrorHandler

	e.GET("/ready", p.HealthCheck.Ready)
	RegisterHandlers(e, p.Handler)

	return e, nil
}

// skipped applies the middleware only to requests that are not skipped
func skipped(skipper middleware.Skipper, m echo.MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		wrapped := m(next)
		return func(ec echo.Context) error {
			if skipper(ec) {
				return next(ec)
			}
			return wrapped(ec)
		}
	}
}
