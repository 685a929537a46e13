package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"

	"github.com/tidepool-org/vitals/alerts"
	errs "github.com/tidepool-org/vitals/errors"
	"github.com/tidepool-org/vitals/readings"
)

func (h *Handler) ListAlerts(ec echo.Context) error {
	var metric *readings.Metric
	var since *time.Time
	var offset *int
	var limit *int

	params := ec.QueryParams()
	if err := runtime.BindQueryParameter("form", true, false, "metric", params, &metric); err != nil {
		return fmt.Errorf("%w: invalid metric: %w", errs.BadRequest, err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "since", params, &since); err != nil {
		return fmt.Errorf("%w: invalid since: %w", errs.BadRequest, err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "offset", params, &offset); err != nil {
		return fmt.Errorf("%w: invalid offset: %w", errs.BadRequest, err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", params, &limit); err != nil {
		return fmt.Errorf("%w: invalid limit: %w", errs.BadRequest, err)
	}

	filter := alerts.Filter{
		Metric: metric,
		Since:  since,
	}
	events, err := h.alerts.List(ec.Request().Context(), ec.Param(patientIdPathParameter), filter, pagination(offset, limit))
	if err != nil {
		return mapError(err)
	}
	if events == nil {
		events = []alerts.Event{}
	}

	return ec.JSON(http.StatusOK, events)
}
