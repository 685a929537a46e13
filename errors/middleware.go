package errors

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

func CustomHTTPErrorHandler(err error, c echo.Context) {
	e := HttpError{}
	if errors.As(err, &e) {
		c.Echo().DefaultHTTPErrorHandler(echo.NewHTTPError(e.Code, err.Error()), c)
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		c.Echo().DefaultHTTPErrorHandler(echo.NewHTTPError(http.StatusGatewayTimeout, "upstream request timed out"), c)
		return
	}
	c.Echo().DefaultHTTPErrorHandler(err, c)
}
