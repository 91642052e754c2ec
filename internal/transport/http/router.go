package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/styleguard/styleguard/internal/handlers"
	authmw "github.com/styleguard/styleguard/internal/middleware/auth"
	loggingmw "github.com/styleguard/styleguard/internal/middleware/logging"
)

type Deps struct {
	Logger *slog.Logger

	AuthHandler       *handlers.AuthHandler
	CorrectionHandler *handlers.CorrectionHandler
	StatusHandler     *handlers.StatusHandler
	Users             authmw.UserResolver

	// AuthRateLimit is requests per second per client IP on /auth; zero disables it.
	AuthRateLimit float64
	AuthRateBurst int
}

func New(d *Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handlers.ErrorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(loggingmw.RequestLogger(d.Logger))

	Register(e, d)
	return e
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/", d.StatusHandler.Root)
	e.GET("/health/live", d.StatusHandler.Live)
	e.GET("/health/ready", d.StatusHandler.Ready)

	var limited []echo.MiddlewareFunc
	if d.AuthRateLimit > 0 {
		limited = append(limited, authRateLimiter(d.AuthRateLimit, d.AuthRateBurst))
	}
	requireUser := authmw.RequireBearer(d.Users)

	auth := e.Group("/auth")
	auth.POST("/register", d.AuthHandler.Register, limited...)
	auth.POST("/token", d.AuthHandler.Login, limited...)
	auth.POST("/refresh", d.AuthHandler.Refresh, limited...)
	auth.GET("/me", d.AuthHandler.Me, requireUser)
	auth.PATCH("/me", d.AuthHandler.UpdateMe, requireUser)
	auth.DELETE("/me", d.AuthHandler.DeleteMe, requireUser)

	corrections := e.Group("/corrections", requireUser)
	corrections.POST("", d.CorrectionHandler.Create)
	corrections.GET("", d.CorrectionHandler.List)
	corrections.GET("/search", d.CorrectionHandler.Search)
	corrections.GET("/:id", d.CorrectionHandler.Get)
	corrections.DELETE("/:id", d.CorrectionHandler.Delete)
}

func authRateLimiter(perSecond float64, burst int) echo.MiddlewareFunc {
	if burst <= 0 {
		burst = 1
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(perSecond),
		Burst:     burst,
		ExpiresIn: 3 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "could not identify client")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests")
		},
	})
}
