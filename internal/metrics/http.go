package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "courier",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests served, by method, route template and status code.",
	}, []string{"method", "route", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "courier",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"method", "route"})

	// rateLimited counts 429s; source is "tenant" or "ip".
	rateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "courier",
		Subsystem: "http",
		Name:      "rate_limit_exceeded_total",
		Help:      "Requests rejected with 429 by the rate limiter.",
	}, []string{"endpoint", "source"})
)

// HTTPMiddleware records request count and latency per route template. Requests to the
// skipped paths (typically /metrics and /healthz) are not recorded.
func HTTPMiddleware(skip ...string) echo.MiddlewareFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			route := c.Path()
			if _, ok := skipped[route]; ok {
				return err
			}
			if route == "" {
				route = "unknown"
			}
			method := c.Request().Method
			httpRequests.WithLabelValues(method, route, strconv.Itoa(responseStatus(c, err))).Inc()
			httpLatency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// responseStatus is the status the client will see. Errors returned by the handler are
// written later by echo's error handler, so the response is not committed yet.
func responseStatus(c echo.Context, err error) int {
	if err == nil || c.Response().Committed {
		return c.Response().Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}

func IncRateLimitExceeded(endpoint, source string) {
	if endpoint == "" {
		endpoint = "unknown"
	}
	if source == "" {
		source = "unknown"
	}
	rateLimited.WithLabelValues(endpoint, source).Inc()
}
