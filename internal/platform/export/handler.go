package export

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
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
	api.GET("/export/workbook.xlsx", h.Workbook)
	api.GET("/export/:file", h.CSV)
	api.GET("/reports/:id/pdf", h.ReportPDF)
	api.GET("/bills/:id/pdf", h.BillPDF)
}

func parseQuery(c echo.Context) (Query, error) {
	q := Query{Term: c.QueryParam("q")}
	var err error
	if q.From, err = labmodels.ParseOptionalDate(c.QueryParam("from")); err != nil {
		return Query{}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if q.To, err = labmodels.ParseOptionalDate(c.QueryParam("to")); err != nil {
		return Query{}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return q, nil
}

func attach(c echo.Context, filename, contentType string, body []byte) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, contentType, body)
}

// CSV serves /export/<dataset>.csv.
func (h *Handler) CSV(c echo.Context) error {
	file := c.Param("file")
	dataset, ok := strings.CutSuffix(file, ".csv")
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no such export")
	}
	q, err := parseQuery(c)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := h.svc.CSV(c.Request().Context(), &buf, dataset, q); err != nil {
		return apperr.HTTPError(err)
	}
	return attach(c, file, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *Handler) Workbook(c echo.Context) error {
	q, err := parseQuery(c)
	if err != nil {
		return err
	}
	book, err := h.svc.Workbook(c.Request().Context(), q)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return attach(c, "lab_data.xlsx", mimeXLSX, book)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) ReportPDF(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	doc, err := h.svc.ReportPDF(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return attach(c, "blood_report_"+id.String()+".pdf", "application/pdf", doc)
}

func (h *Handler) BillPDF(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	doc, err := h.svc.BillPDF(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return attach(c, "bill_"+id.String()+".pdf", "application/pdf", doc)
}
