package controller

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	ddomain "github.com/corvusHold/courier/internal/dispatch/domain"
	rl "github.com/corvusHold/courier/internal/platform/ratelimit"
	"github.com/corvusHold/courier/internal/platform/validation"
	qdomain "github.com/corvusHold/courier/internal/queue/domain"
)

// Enqueuer is the producer side of the queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, req qdomain.EnqueueRequest) (qdomain.EmailEvent, error)
}

// QuotaReader exposes the read-only quota view.
type QuotaReader interface {
	Status(ctx context.Context, tenantID string) (ddomain.QuotaStatus, error)
}

// Controller exposes the enqueue and quota endpoints under /api/v1/email.
type Controller struct {
	queue Enqueuer
	quota QuotaReader
	log   zerolog.Logger

	rlStore  rl.Store
	rlLimit  int
	rlWindow time.Duration
}

func New(queue Enqueuer, quota QuotaReader) *Controller {
	return &Controller{queue: queue, quota: quota, log: zerolog.Nop()}
}

// WithRateLimit limits POST /send per tenant using store.
func (h *Controller) WithRateLimit(store rl.Store, limit int, window time.Duration) *Controller {
	h.rlStore, h.rlLimit, h.rlWindow = store, limit, window
	return h
}

// WithLogger sets the request logger.
func (h *Controller) WithLogger(l zerolog.Logger) *Controller { h.log = l; return h }

// Register mounts the email endpoints.
func (h *Controller) Register(e *echo.Echo) {
	g := e.Group("/api/v1/email")
	var sendMW []echo.MiddlewareFunc
	if h.rlStore != nil {
		p := rl.Policy{Name: "email:send", Limit: h.rlLimit, Window: h.rlWindow, Key: rl.KeyTenantOrIP("email:send")}
		sendMW = append(sendMW, rl.Middleware(p, h.rlStore, h.log))
	}
	g.POST("/send", h.send, sendMW...)
	g.GET("/quota/:tenantId", h.quotaStatus)
}

type sendResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// Send Email godoc
// @Summary      Queue an email for delivery
// @Tags         email
// @Accept       json
// @Produce      json
// @Param        body  body  domain.EnqueueRequest  true  "email"
// @Success      200  {object}  sendResponse
// @Failure      400  {object}  validation.ErrorBody
// @Failure      429  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/email/send [post]
func (h *Controller) send(c echo.Context) error {
	var req qdomain.EnqueueRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	req.ToAddress = strings.TrimSpace(req.ToAddress)
	req.FromAddress = strings.TrimSpace(req.FromAddress)
	req.TenantID = strings.TrimSpace(req.TenantID)
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, validation.ErrorResponse(err))
	}
	ev, err := h.queue.Enqueue(c.Request().Context(), req)
	if err != nil {
		h.log.Error().Err(err).Str("tenant_id", req.TenantID).Msg("error queueing email")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	return c.JSON(http.StatusOK, sendResponse{Message: "Email queued successfully", ID: ev.ID})
}

// Quota Status godoc
// @Summary      Daily quota of a tenant
// @Tags         email
// @Produce      json
// @Param        tenantId  path  string  true  "Tenant ID"
// @Success      200  {object}  ddomain.QuotaStatus
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/email/quota/{tenantId} [get]
func (h *Controller) quotaStatus(c echo.Context) error {
	tenantID := strings.TrimSpace(c.Param("tenantId"))
	if tenantID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "tenantId is required"})
	}
	st, err := h.quota.Status(c.Request().Context(), tenantID)
	if err != nil {
		h.log.Error().Err(err).Str("tenant_id", tenantID).Msg("error getting quota status")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	return c.JSON(http.StatusOK, st)
}
