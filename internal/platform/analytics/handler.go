package analytics

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/labdesk/labdesk/internal/platform/apperr"
	"github.com/labdesk/labdesk/pkg/labmodels"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/analytics")
	g.GET("/revenue", h.Revenue)
	g.GET("/tests", h.Tests)
	g.GET("/patients", h.Patients)
	g.GET("/outstanding", h.Outstanding)
	g.GET("/performance", h.Performance)
	g.GET("/daily", h.Daily)
	g.GET("/monthly", h.Monthly)
	g.GET("/overview", h.Overview)
	g.GET("/charts/:name", h.Chart)
}

func (h *Handler) rangeParam(c echo.Context) (Range, error) {
	from, err := labmodels.ParseOptionalDate(c.QueryParam("from"))
	if err != nil {
		return Range{}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	to, err := labmodels.ParseOptionalDate(c.QueryParam("to"))
	if err != nil {
		return Range{}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	r, err := h.svc.ResolveRange(from, to)
	if err != nil {
		return Range{}, apperr.HTTPError(err)
	}
	return r, nil
}

func intParam(c echo.Context, name string, def int) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be a positive integer")
	}
	return n, nil
}

func respond(c echo.Context, v interface{}, err error) error {
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) Revenue(c echo.Context) error {
	r, err := h.rangeParam(c)
	if err != nil {
		return err
	}
	v, err := h.svc.Revenue(c.Request().Context(), r)
	return respond(c, v, err)
}

func (h *Handler) Tests(c echo.Context) error {
	r, err := h.rangeParam(c)
	if err != nil {
		return err
	}
	top, err := intParam(c, "top", DefaultTopTests)
	if err != nil {
		return err
	}
	v, err := h.svc.Tests(c.Request().Context(), r, top)
	return respond(c, v, err)
}

func (h *Handler) Patients(c echo.Context) error {
	r, err := h.rangeParam(c)
	if err != nil {
		return err
	}
	v, err := h.svc.Patients(c.Request().Context(), r)
	return respond(c, v, err)
}

func (h *Handler) Outstanding(c echo.Context) error {
	v, err := h.svc.Outstanding(c.Request().Context())
	return respond(c, v, err)
}

func (h *Handler) Performance(c echo.Context) error {
	v, err := h.svc.Performance(c.Request().Context())
	return respond(c, v, err)
}

func (h *Handler) Daily(c echo.Context) error {
	days, err := intParam(c, "days", DefaultTrendDays)
	if err != nil {
		return err
	}
	v, err := h.svc.DailyTrend(c.Request().Context(), days)
	return respond(c, v, err)
}

func (h *Handler) Monthly(c echo.Context) error {
	months, err := intParam(c, "months", DefaultCompareMonth)
	if err != nil {
		return err
	}
	v, err := h.svc.MonthlyComparison(c.Request().Context(), months)
	return respond(c, v, err)
}

func (h *Handler) Overview(c echo.Context) error {
	r, err := h.rangeParam(c)
	if err != nil {
		return err
	}
	v, err := h.svc.Overview(c.Request().Context(), r)
	return respond(c, v, err)
}

func (h *Handler) Chart(c echo.Context) error {
	r, err := h.rangeParam(c)
	if err != nil {
		return err
	}
	page, err := h.svc.Chart(c.Request().Context(), c.Param("name"), r)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.HTMLBlob(http.StatusOK, page)
}
