package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labdesk/labdesk/internal/platform/events"
)

func TestMiddleware_LabelsByRoute(t *testing.T) {
	m := New()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/v1/patients/:id", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	e.GET("/api/v1/bills/:id", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "no such record")
	})

	for _, target := range []string{"/api/v1/patients/a", "/api/v1/patients/b", "/api/v1/bills/x"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, target, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/v1/patients/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/v1/bills/:id", "404")))
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, events.Event) error {
	return errors.New("broker down")
}

func TestPublisher_CountsEvents(t *testing.T) {
	m := New()
	mem := events.NewMemory()
	pub := m.Publisher(mem)
	ctx := context.Background()

	require.NoError(t, pub.Publish(ctx, events.New(events.BillCreated, uuid.New(), uuid.New(), nil)))
	require.NoError(t, pub.Publish(ctx, events.New(events.PaymentRecorded, uuid.New(), uuid.New(), nil)))
	require.NoError(t, pub.Publish(ctx, events.New(events.PaymentRecorded, uuid.New(), uuid.New(), nil)))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.domainEvents.WithLabelValues(events.BillCreated)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.domainEvents.WithLabelValues(events.PaymentRecorded)))
	assert.Len(t, mem.Events(), 3)

	failing := m.Publisher(failingPublisher{})
	assert.Error(t, failing.Publish(ctx, events.New(events.ReportCreated, uuid.New(), uuid.New(), nil)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.publishFails.WithLabelValues(events.ReportCreated)))
}

func TestHandler_ServesRegistry(t *testing.T) {
	m := New()
	m.Publisher(events.Noop{}).Publish(context.Background(), events.New(events.ReportCreated, uuid.New(), uuid.New(), nil))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `labdesk_domain_events_total{type="report.created"} 1`))
}
