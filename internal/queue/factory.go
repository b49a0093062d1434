package queue

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	rl "github.com/corvusHold/courier/internal/platform/ratelimit"
	ctrl "github.com/corvusHold/courier/internal/queue/controller"
	qdomain "github.com/corvusHold/courier/internal/queue/domain"
	svc "github.com/corvusHold/courier/internal/queue/service"
)

// RateLimit configures the per-tenant limit on the enqueue endpoint. A nil Store disables it.
type RateLimit struct {
	Store  rl.Store
	Limit  int
	Window time.Duration
}

// Register wires the queue producer module and registers HTTP routes.
func Register(e *echo.Echo, store qdomain.Store, quota ctrl.QuotaReader, limit RateLimit, log zerolog.Logger) *svc.Service {
	s := svc.New(store, log)
	c := ctrl.New(s, quota).WithLogger(log)
	if limit.Store != nil {
		c.WithRateLimit(limit.Store, limit.Limit, limit.Window)
	}
	c.Register(e)
	return s
}
