package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tidepool-org/vitals/auth"
	errs "github.com/tidepool-org/vitals/errors"
	"github.com/tidepool-org/vitals/limits"
)

// GetLimits returns the stored limits of the patient with the profile bands filled in
// for metrics without a patient limit
func (h *Handler) GetLimits(ec echo.Context) error {
	patientId := ec.Param(patientIdPathParameter)

	result, err := h.limits.Get(ec.Request().Context(), patientId)
	if errors.Is(err, limits.ErrNotFound) {
		result = &limits.Limits{PatientId: patientId}
	} else if err != nil {
		return mapError(err)
	}

	return ec.JSON(http.StatusOK, result.WithDefaults(h.config.Profiles))
}

func (h *Handler) UpdateLimits(ec echo.Context) error {
	update := limits.Limits{}
	if err := ec.Bind(&update); err != nil {
		return fmt.Errorf("%w: %w", errs.BadRequest, err)
	}

	update.PatientId = ec.Param(patientIdPathParameter)
	if data := auth.GetAuthData(ec.Request().Context()); data != nil {
		update.UpdatedBy = data.SubjectId
	}

	result, err := h.limits.Upsert(ec.Request().Context(), update)
	if err != nil {
		return mapError(err)
	}

	return ec.JSON(http.StatusOK, result)
}
