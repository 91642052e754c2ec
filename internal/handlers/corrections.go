package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/styleguard/styleguard/internal/logging"
	authmw "github.com/styleguard/styleguard/internal/middleware/auth"
	"github.com/styleguard/styleguard/internal/service"
	"github.com/styleguard/styleguard/internal/transport"
	"github.com/styleguard/styleguard/internal/util"
)

const HeaderTotalCount = "X-Total-Count"

type CorrectionHandler struct {
	Svc *service.CorrectionService
}

func (h *CorrectionHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "corrections_create")

	user, ok := authmw.UserFrom(c)
	if !ok {
		return authmw.Unauthorized("Not authenticated")
	}

	var req transport.CorrectionRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("correction_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	rec, err := h.Svc.Submit(ctx, user, req.OriginalText)
	if err != nil {
		if he := modelError(err); he != nil {
			return he
		}
		if errors.Is(err, service.ErrValidation) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return internalError(err)
	}

	return c.JSON(http.StatusOK, transport.NewCorrectionResponse(rec))
}

// List accepts skip/limit, or page/size when page is given.
func (h *CorrectionHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	user, ok := authmw.UserFrom(c)
	if !ok {
		return authmw.Unauthorized("Not authenticated")
	}

	from, size, err := pageParams(c)
	if err != nil {
		return err
	}

	page, err := h.Svc.List(ctx, user, from, size)
	if err != nil {
		return internalError(err)
	}

	c.Response().Header().Set(HeaderTotalCount, strconv.FormatInt(page.Total, 10))
	return c.JSON(http.StatusOK, transport.NewCorrectionList(page.Items))
}

func (h *CorrectionHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	user, ok := authmw.UserFrom(c)
	if !ok {
		return authmw.Unauthorized("Not authenticated")
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}

	rec, err := h.Svc.Get(ctx, user, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, DetailNotFound)
		}
		return internalError(err)
	}
	return c.JSON(http.StatusOK, transport.NewCorrectionResponse(rec))
}

func (h *CorrectionHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()

	user, ok := authmw.UserFrom(c)
	if !ok {
		return authmw.Unauthorized("Not authenticated")
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}

	deleted, err := h.Svc.Delete(ctx, user, id)
	if err != nil {
		return internalError(err)
	}
	if !deleted {
		return echo.NewHTTPError(http.StatusNotFound, DetailNotFound)
	}
	return c.JSON(http.StatusOK, transport.ErrorResponse{Detail: "Correction deleted successfully"})
}

func (h *CorrectionHandler) Search(c echo.Context) error {
	ctx := c.Request().Context()

	user, ok := authmw.UserFrom(c)
	if !ok {
		return authmw.Unauthorized("Not authenticated")
	}

	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q is required")
	}
	from, size, err := pageParams(c)
	if err != nil {
		return err
	}

	page, err := h.Svc.Search(ctx, user, q, from, size)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSearchDisabled):
			return echo.NewHTTPError(http.StatusServiceUnavailable, "Search is not available")
		case errors.Is(err, service.ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return internalError(err)
	}

	return c.JSON(http.StatusOK, transport.SearchResponse{
		Total: page.Total,
		Items: transport.NewCorrectionList(page.Items),
	})
}

func pageParams(c echo.Context) (from, size int, err error) {
	if p := c.QueryParam("page"); p != "" {
		page, perr := strconv.Atoi(p)
		if perr != nil {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "page must be an integer")
		}
		s, _ := strconv.Atoi(c.QueryParam("size"))
		from, size = util.Calculate(page, s)
		return from, size, nil
	}

	skip, limit := 0, util.DefaultPageSize
	if v := c.QueryParam("skip"); v != "" {
		if skip, err = strconv.Atoi(v); err != nil {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "skip must be an integer")
		}
	}
	if v := c.QueryParam("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "limit must be an integer")
		}
	}
	from, size = util.Window(skip, limit)
	return from, size, nil
}

func idParam(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid correction id")
	}
	return uint(id), nil
}
