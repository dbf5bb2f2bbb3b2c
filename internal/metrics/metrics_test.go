package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(BookingsCreated.WithLabelValues("pending"))
	BookingsCreated.WithLabelValues("pending").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(BookingsCreated.WithLabelValues("pending")))
}

func TestMiddlewareObserves(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/healthz", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, testutil.CollectAndCount(httpDuration, "venuex_http_request_duration_seconds"))
}
