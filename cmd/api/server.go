package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/corvusHold/courier/internal/metrics"
	"github.com/corvusHold/courier/internal/platform/validation"
	qdomain "github.com/corvusHold/courier/internal/queue/domain"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// newEcho builds the HTTP server with the shared middleware stack. Routes are added by the caller.
func newEcho(allowedOrigins []string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.Secure())
	e.Use(metrics.HTTPMiddleware("/metrics", "/healthz"))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOriginFunc: func(origin string) (bool, error) {
			return matchCORSOrigin(origin, allowedOrigins), nil
		},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	e.Validator = validation.New()
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	return e
}

// healthHandler pings the queue store and, when configured, the tenant directory.
// Only a failed queue store makes the service unhealthy.
func healthHandler(store qdomain.Store, directory pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 500*time.Millisecond)
		defer cancel()

		status, code := "ok", http.StatusOK
		queueStatus := "ok"
		start := time.Now()
		err := store.Ping(ctx)
		metrics.ObserveQueueStorePing(time.Since(start).Seconds())
		metrics.SetQueueStoreUp(err == nil)
		if err != nil {
			queueStatus = "down"
			status, code = "down", http.StatusServiceUnavailable
		}

		body := map[string]any{
			"status": status,
			"time":   time.Now().UTC().Format(time.RFC3339),
			"queue":  queueStatus,
		}
		if err == nil {
			if n, err := store.Len(ctx); err == nil {
				metrics.SetQueueDepth(n)
				body["queueDepth"] = n
			}
		}

		dirStatus := "disabled"
		if directory != nil {
			dirStatus = "ok"
			if err := directory.Ping(ctx); err != nil {
				dirStatus = "down"
				if code == http.StatusOK {
					body["status"] = "degraded"
				}
			}
			metrics.SetDirectoryUp(dirStatus == "ok")
		}
		body["directory"] = dirStatus

		return c.JSON(code, body)
	}
}
