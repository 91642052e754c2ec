package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/styleguard/styleguard/internal/service"
	"github.com/styleguard/styleguard/internal/transport"
)

// Details returned for model failures; clients match on these strings.
const (
	DetailModelConnection = "OLLAMA_CONNECTION_ERROR"
	DetailModelTimeout    = "OLLAMA_TIMEOUT_ERROR"
	DetailModelGeneral    = "OLLAMA_GENERAL_ERROR"
	DetailNotFound        = "Correction not found"
	DetailInternal        = "Internal server error"
)

// modelError maps a correction pipeline failure to its HTTP error.
func modelError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, service.ErrModelUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, DetailModelConnection).SetInternal(err)
	case errors.Is(err, service.ErrModelTimeout):
		return echo.NewHTTPError(http.StatusGatewayTimeout, DetailModelTimeout).SetInternal(err)
	case errors.Is(err, service.ErrModelError):
		return echo.NewHTTPError(http.StatusInternalServerError, DetailModelGeneral).SetInternal(err)
	}
	return nil
}

func internalError(err error) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusInternalServerError, DetailInternal).SetInternal(err)
}

// ErrorHandler renders every error as {"detail": "..."}.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	he := &echo.HTTPError{}
	if !errors.As(err, &he) {
		he = internalError(err)
	}

	detail := DetailInternal
	switch m := he.Message.(type) {
	case string:
		detail = m
	case error:
		detail = m.Error()
	case nil:
		detail = http.StatusText(he.Code)
	default:
		detail = fmt.Sprint(m)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(he.Code)
		return
	}
	_ = c.JSON(he.Code, transport.ErrorResponse{Detail: detail})
}
