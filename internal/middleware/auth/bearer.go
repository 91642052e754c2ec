package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/styleguard/styleguard/internal/logging"
	"github.com/styleguard/styleguard/internal/models"
	"github.com/styleguard/styleguard/internal/service"
)

const (
	userKey         = "current_user"
	credentialsFail = "Could not validate credentials"
)

type UserResolver interface {
	ResolveCurrentUser(ctx context.Context, token string) (*models.User, error)
}

// Unauthorized builds the 401 every auth failure shares.
func Unauthorized(msg string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusUnauthorized, msg)
}

// RequireBearer resolves the access token on every request; nothing about
// the user is cached between requests.
func RequireBearer(r UserResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			l := logging.FromContext(ctx)

			token, ok := BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
				l.Warn("auth_failed", "status", 401, "reason", "missing bearer token")
				return Unauthorized("Not authenticated")
			}

			user, err := r.ResolveCurrentUser(ctx, token)
			if err != nil {
				if service.IsAuthError(err) {
					c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
					l.Warn("auth_failed", "status", 401, "error", err)
					return Unauthorized(credentialsFail)
				}
				l.Error("auth_failed", "status", 500, "error", err)
				return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error").SetInternal(err)
			}

			SetUser(c, user)
			c.SetRequest(c.Request().WithContext(logging.IntoContext(ctx, l.With("user_id", user.ID))))
			return next(c)
		}
	}
}

func SetUser(c echo.Context, u *models.User) {
	c.Set(userKey, u)
}

func UserFrom(c echo.Context) (*models.User, bool) {
	u, ok := c.Get(userKey).(*models.User)
	return u, ok && u != nil
}

func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
