package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncDispatchOutcome_DefaultsEmptyLabel(t *testing.T) {
	before := testutil.ToFloat64(dispatchOutcomesTotal.WithLabelValues("unknown"))
	IncDispatchOutcome("")
	assert.Equal(t, before+1, testutil.ToFloat64(dispatchOutcomesTotal.WithLabelValues("unknown")))
}

func TestPerTenantCounters(t *testing.T) {
	IncEmailSent("tenant-metrics")
	IncEmailSent("tenant-metrics")
	IncEmailFailedSend("tenant-metrics")
	IncEmailThrottled("")

	assert.Equal(t, 2.0, testutil.ToFloat64(emailSendTotal.WithLabelValues("tenant-metrics")))
	assert.Equal(t, 1.0, testutil.ToFloat64(emailFailedSendTotal.WithLabelValues("tenant-metrics")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(emailThrottledTotal.WithLabelValues("unknown")), 1.0)
}

func TestSetQueueStoreUp(t *testing.T) {
	SetQueueStoreUp(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(queueStoreUp))
	SetQueueStoreUp(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(queueStoreUp))
}

func TestHTTPMiddleware_RecordsRouteAndStatus(t *testing.T) {
	e := echo.New()
	e.Use(HTTPMiddleware())
	e.GET("/api/v1/email/quota/:tenantId", func(c echo.Context) error {
		return c.NoContent(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/email/quota/t1", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	got := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/api/v1/email/quota/:tenantId", "418"))
	assert.Equal(t, 1.0, got)
}

func TestHTTPMiddleware_RecordsReturnedErrorStatus(t *testing.T) {
	e := echo.New()
	e.Use(HTTPMiddleware())
	e.POST("/api/v1/email/send", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusUnsupportedMediaType)
	})
	e.POST("/boom", func(c echo.Context) error {
		return assert.AnError
	})

	for _, path := range []string{"/api/v1/email/send", "/boom"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, path, nil))
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodPost, "/api/v1/email/send", "415")))
	assert.Equal(t, 1.0, testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodPost, "/boom", "500")))
}

func TestHTTPMiddleware_SkipsPaths(t *testing.T) {
	e := echo.New()
	e.Use(HTTPMiddleware("/healthz"))
	e.GET("/healthz", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, 0.0, testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/healthz", "200")))
}

func TestIncRateLimitExceeded(t *testing.T) {
	IncRateLimitExceeded("email:send", "tenant")
	IncRateLimitExceeded("", "")
	assert.Equal(t, 1.0, testutil.ToFloat64(rateLimited.WithLabelValues("email:send", "tenant")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rateLimited.WithLabelValues("unknown", "unknown")))
}

func TestTenantLabel_CapsCardinality(t *testing.T) {
	SetMaxTenantLabels(len(tenantLabels.seen) + 2)
	t.Cleanup(func() { SetMaxTenantLabels(DefaultMaxTenantLabels) })

	IncEmailSent("cap-a")
	IncEmailSent("cap-b")
	IncEmailSent("cap-c")
	IncEmailSent("cap-d")
	IncEmailSent("cap-a")

	assert.Equal(t, 2.0, testutil.ToFloat64(emailSendTotal.WithLabelValues("cap-a")))
	assert.Equal(t, 1.0, testutil.ToFloat64(emailSendTotal.WithLabelValues("cap-b")))
	assert.Equal(t, 2.0, testutil.ToFloat64(emailSendTotal.WithLabelValues("other")))
	assert.Equal(t, 0.0, testutil.ToFloat64(emailSendTotal.WithLabelValues("cap-c")))
}
