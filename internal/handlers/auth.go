package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/styleguard/styleguard/internal/logging"
	authmw "github.com/styleguard/styleguard/internal/middleware/auth"
	"github.com/styleguard/styleguard/internal/service"
	"github.com/styleguard/styleguard/internal/transport"
)

const incorrectCredentials = "Incorrect username or password"

type AuthHandler struct {
	Svc *service.AuthService
}

func (h *AuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.Svc.Register(ctx, req.Email, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrEmailTaken):
			return echo.NewHTTPError(http.StatusConflict, "Email already registered")
		case errors.Is(err, service.ErrUsernameTaken):
			return echo.NewHTTPError(http.StatusConflict, "Username already taken")
		case errors.Is(err, service.ErrAlreadyExists):
			return echo.NewHTTPError(http.StatusConflict, "User already exists")
		}
		return internalError(err)
	}

	return c.JSON(http.StatusOK, transport.NewUserResponse(user))
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	pair, _, err := h.Svc.Login(ctx, req.Login(), req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
			return authmw.Unauthorized(incorrectCredentials)
		}
		return internalError(err)
	}

	return c.JSON(http.StatusOK, transport.NewTokenResponse(pair, time.Now()))
}

func (h *AuthHandler) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	var req transport.RefreshRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("refresh_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	token := firstNonEmpty(c.QueryParam("token"), req.Token, req.RefreshToken)
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}

	pair, user, err := h.Svc.Refresh(ctx, token)
	if err != nil {
		if service.IsAuthError(err) {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
			return authmw.Unauthorized("Could not validate credentials")
		}
		return internalError(err)
	}

	return c.JSON(http.StatusOK, transport.RefreshResponse{
		TokenResponse: transport.NewTokenResponse(pair, time.Now()),
		User:          transport.NewUserResponse(user),
	})
}

func (h *AuthHandler) Me(c echo.Context) error {
	user, ok := authmw.UserFrom(c)
	if !ok {
		return authmw.Unauthorized("Not authenticated")
	}
	return c.JSON(http.StatusOK, transport.NewUserResponse(user))
}

func (h *AuthHandler) UpdateMe(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_update_me")

	user, ok := authmw.UserFrom(c)
	if !ok {
		return authmw.Unauthorized("Not authenticated")
	}

	var req transport.UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("update_user_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	updated, err := h.Svc.UpdateUser(ctx, user, service.UserUpdate{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrEmailTaken):
			return echo.NewHTTPError(http.StatusConflict, "Email already registered")
		case errors.Is(err, service.ErrUsernameTaken):
			return echo.NewHTTPError(http.StatusConflict, "Username already taken")
		case errors.Is(err, service.ErrAlreadyExists):
			return echo.NewHTTPError(http.StatusConflict, "User already exists")
		case errors.Is(err, service.ErrUnknownSubject):
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return internalError(err)
	}

	return c.JSON(http.StatusOK, transport.NewUserResponse(updated))
}

func (h *AuthHandler) DeleteMe(c echo.Context) error {
	ctx := c.Request().Context()

	user, ok := authmw.UserFrom(c)
	if !ok {
		return authmw.Unauthorized("Not authenticated")
	}

	deleted, err := h.Svc.DeleteUser(ctx, user)
	if err != nil {
		return internalError(err)
	}
	if !deleted {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}
	return c.JSON(http.StatusOK, transport.ErrorResponse{Detail: "User deleted successfully"})
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
