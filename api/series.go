package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	errs "github.com/tidepool-org/vitals/errors"
	"github.com/tidepool-org/vitals/reports"
)

func (h *Handler) GetSeries(ec echo.Context) error {
	patientId, metric := seriesParams(ec)
	window, err := parseWindow(ec)
	if err != nil {
		return err
	}

	result, err := h.monitor.Series(requestContext(ec), patientId, metric, window)
	if err != nil {
		return mapError(err)
	}

	return ec.JSON(http.StatusOK, result)
}

func (h *Handler) ExportSeries(ec echo.Context) error {
	patientId, metric := seriesParams(ec)
	window, err := parseWindow(ec)
	if err != nil {
		return err
	}

	result, err := h.monitor.Series(requestContext(ec), patientId, metric, window)
	if err != nil {
		return mapError(err)
	}

	report := reports.NewReport(result, time.Now())
	buffer := &bytes.Buffer{}
	if err := report.Write(buffer); err != nil {
		h.logger.Errorw("unable to generate report", "patientId", patientId, "metric", metric, "error", err)
		return fmt.Errorf("%w: unable to generate report", errs.InternalServerError)
	}

	ec.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", report.FileName()))
	return ec.Blob(http.StatusOK, reports.ContentType, buffer.Bytes())
}
