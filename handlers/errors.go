package handlers

import (
	"errors"
	"net/http"

	"zakat_flow_go/services"

	"github.com/labstack/echo/v4"
)

// httpError maps service-layer sentinel errors onto HTTP responses. Anything
// unrecognized becomes a 500 with a generic body.
func httpError(err error) error {
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
	case errors.Is(err, services.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
	case errors.Is(err, services.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Resource not found")
	case errors.Is(err, services.ErrInvalidArgument):
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request")
	case errors.Is(err, services.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, "Resource already exists")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
	}
}
