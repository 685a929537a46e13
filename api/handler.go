package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tidepool-org/vitals/alerts"
	"github.com/tidepool-org/vitals/auth"
	"github.com/tidepool-org/vitals/authz"
	"github.com/tidepool-org/vitals/config"
	errs "github.com/tidepool-org/vitals/errors"
	"github.com/tidepool-org/vitals/limits"
	"github.com/tidepool-org/vitals/monitor"
	"github.com/tidepool-org/vitals/pointer"
	"github.com/tidepool-org/vitals/readings"
	"github.com/tidepool-org/vitals/series"
	"github.com/tidepool-org/vitals/source"
	"github.com/tidepool-org/vitals/store"
)

const (
	patientIdPathParameter = "patientId"
	metricPathParameter    = "metric"

	defaultWindow = "30min"
)

type Handler struct {
	alerts  alerts.Repository
	config  *config.Config
	limits  limits.Service
	logger  *zap.SugaredLogger
	monitor monitor.Monitor
}

type Params struct {
	fx.In

	Alerts  alerts.Repository
	Config  *config.Config
	Limits  limits.Service
	Logger  *zap.SugaredLogger
	Monitor monitor.Monitor
}

func NewHandler(p Params) *Handler {
	return &Handler{
		alerts:  p.Alerts,
		config:  p.Config,
		limits:  p.Limits,
		logger:  p.Logger,
		monitor: p.Monitor,
	}
}

func RegisterHandlers(e *echo.Echo, h *Handler) {
	e.GET("/v1/patients/:patientId/series/:metric", h.GetSeries)
	e.GET("/v1/patients/:patientId/series/:metric/live", h.GetLiveSeries)
	e.GET("/v1/patients/:patientId/series/:metric/export", h.ExportSeries)
	e.GET("/v1/patients/:patientId/limits", h.GetLimits)
	e.PUT("/v1/patients/:patientId/limits", h.UpdateLimits)
	e.GET("/v1/patients/:patientId/alerts", h.ListAlerts)
}

// requestContext forwards the session token of the caller to the reading source
func requestContext(ec echo.Context) context.Context {
	ctx := ec.Request().Context()
	if data := auth.GetAuthData(ctx); data != nil && data.Token != "" {
		ctx = source.WithBearerToken(ctx, data.Token)
	}
	return ctx
}

func seriesParams(ec echo.Context) (string, readings.Metric) {
	return ec.Param(patientIdPathParameter), readings.Metric(ec.Param(metricPathParameter))
}

func parseWindow(ec echo.Context) (series.TimeWindow, error) {
	var window *string
	var from *time.Time
	var to *time.Time

	if err := runtime.BindQueryParameter("form", true, false, "window", ec.QueryParams(), &window); err != nil {
		return series.TimeWindow{}, fmt.Errorf("%w: invalid window: %w", errs.BadRequest, err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "from", ec.QueryParams(), &from); err != nil {
		return series.TimeWindow{}, fmt.Errorf("%w: invalid from: %w", errs.BadRequest, err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "to", ec.QueryParams(), &to); err != nil {
		return series.TimeWindow{}, fmt.Errorf("%w: invalid to: %w", errs.BadRequest, err)
	}

	value := pointer.ToString(window)
	if value == "" && from == nil && to == nil {
		value = defaultWindow
	}
	result, err := series.ParseWindow(value, from, to)
	if err != nil {
		return series.TimeWindow{}, fmt.Errorf("%w: %w", errs.BadRequest, err)
	}
	return result, nil
}

func pagination(offset *int, limit *int) store.Pagination {
	page := store.DefaultPagination()
	return store.Pagination{
		Offset: pointer.Default(offset, page.Offset),
		Limit:  pointer.Default(limit, page.Limit),
	}
}

// mapError translates domain errors to http errors handled by errors.CustomHTTPErrorHandler
func mapError(err error) error {
	switch {
	case errors.As(err, &errs.HttpError{}):
		return err
	case errors.Is(err, limits.ErrNotFound):
		return fmt.Errorf("%w: %w", errs.NotFound, err)
	case errors.Is(err, readings.ErrUnsupportedMetric), errors.Is(err, readings.ErrInvalidBand), errors.Is(err, series.ErrInvalidWindow):
		return fmt.Errorf("%w: %w", errs.BadRequest, err)
	case errors.Is(err, source.ErrUpstream):
		return fmt.Errorf("%w: %w", errs.BadGateway, err)
	case errors.Is(err, authz.ErrUnauthorized):
		return fmt.Errorf("%w: %w", errs.Forbidden, err)
	default:
		return err
	}
}
