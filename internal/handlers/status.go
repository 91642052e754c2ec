package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/styleguard/styleguard/internal/logging"
	"github.com/styleguard/styleguard/internal/transport"
)

const (
	ServiceName = "StyleGuard API"
	Version     = "1.0.0"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type StatusHandler struct {
	DB Pinger
}

func (h *StatusHandler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, transport.StatusResponse{
		Status:  "online",
		Service: ServiceName,
		Version: Version,
	})
}

func (h *StatusHandler) Live(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func (h *StatusHandler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := h.DB.Ping(ctx); err != nil {
		logging.FromContext(ctx).Error("readiness_failed", "status", 503, "error", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
	}
	return c.NoContent(http.StatusOK)
}
