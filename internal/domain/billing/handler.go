package billing

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/labdesk/labdesk/internal/platform/apperr"
	"github.com/labdesk/labdesk/pkg/labmodels"
	"github.com/labdesk/labdesk/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the billing endpoints. Extra middleware, such as the
// idempotency guard, wraps the POST routes only.
func (h *Handler) RegisterRoutes(api *echo.Group, writeMW ...echo.MiddlewareFunc) {
	api.POST("/bills", h.CreateManualBill, writeMW...)
	api.GET("/bills", h.ListBills)
	api.GET("/bills/:id", h.GetBill)
	api.POST("/bills/:id/payments", h.RecordPayment, writeMW...)
	api.POST("/reports/:id/bill", h.CreateBillFromReport, writeMW...)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) CreateManualBill(c echo.Context) error {
	var req ManualBillRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	b, err := h.svc.CreateManualBill(c.Request().Context(), req)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return h.respondView(c, http.StatusCreated, b.ID)
}

func (h *Handler) CreateBillFromReport(c echo.Context) error {
	reportID, err := parseID(c)
	if err != nil {
		return err
	}
	billID, err := h.svc.CreateBillFromReport(c.Request().Context(), reportID)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return h.respondView(c, http.StatusCreated, billID)
}

func (h *Handler) RecordPayment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req PaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if _, err := h.svc.RecordPayment(c.Request().Context(), id, req); err != nil {
		return apperr.HTTPError(err)
	}
	return h.respondView(c, http.StatusOK, id)
}

func (h *Handler) GetBill(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	return h.respondView(c, http.StatusOK, id)
}

func (h *Handler) respondView(c echo.Context, code int, id uuid.UUID) error {
	v, err := h.svc.GetBillView(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(code, v)
}

func (h *Handler) ListBills(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := Filter{Status: c.QueryParam("payment_status"), Limit: pg.Limit, Offset: pg.Offset}
	if v := c.QueryParam("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		f.PatientID = &id
	}
	var err error
	if f.From, err = labmodels.ParseOptionalDate(c.QueryParam("from")); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if f.To, err = labmodels.ParseOptionalDate(c.QueryParam("to")); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	items, total, err := h.svc.ListBills(c.Request().Context(), f)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset).WithNext(c))
}
