package ratelimit

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/corvusHold/courier/internal/metrics"
)

// Policy defines a simple fixed-window rate limit.
// Limit requests within Window per derived key.
type Policy struct {
	// Name is a short identifier for the limited endpoint, used for logging/metrics (e.g. "email:send").
	Name   string
	Window time.Duration
	Limit  int
	// Key builds the bucket key for this request.
	Key func(echo.Context) string
}

// Store abstracts a shared counter store (e.g., Redis) for fixed-window limiting.
type Store interface {
	// Allow increments the counter for the key in the given window and returns whether the request is allowed.
	// If not allowed, retryAfterSec indicates seconds until the window resets.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, retryAfterSec int, err error)
}

// Middleware enforces p using s. Store errors fail open.
func Middleware(p Policy, s Store, log zerolog.Logger) echo.MiddlewareFunc {
	if p.Window <= 0 {
		p.Window = time.Minute
	}
	if p.Limit <= 0 {
		p.Limit = 60
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := "global"
			if p.Key != nil {
				key = p.Key(c)
			}
			allowed, retryAfter, err := s.Allow(c.Request().Context(), key, p.Limit, p.Window)
			if err != nil {
				log.Warn().Err(err).Str("endpoint", p.Name).Msg("rate limit store unavailable")
				return next(c)
			}
			if allowed {
				return next(c)
			}
			src := "ip"
			if strings.Contains(key, ":ten:") {
				src = "tenant"
			}
			metrics.IncRateLimitExceeded(p.Name, src)
			log.Warn().
				Str("endpoint", p.Name).
				Str("key", key).
				Int("limit", p.Limit).
				Dur("window", p.Window).
				Int("retry_after", retryAfter).
				Msg("rate limit exceeded")
			if retryAfter > 0 {
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
			}
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		}
	}
}

// KeyTenantOrIP extracts a tenant identifier from the :tenantId path param or the JSON body
// {"tenantId": "..."}, falling back to the request's real IP. Prefix allows per-endpoint separation.
func KeyTenantOrIP(prefix string) func(echo.Context) string {
	return func(c echo.Context) string {
		ten := c.Param("tenantId")
		if ten == "" && strings.Contains(strings.ToLower(c.Request().Header.Get("Content-Type")), "application/json") {
			if c.Request().Body != nil {
				// Read and restore so the handler can still bind the body.
				buf, _ := io.ReadAll(c.Request().Body)
				c.Request().Body = io.NopCloser(bytes.NewReader(buf))
				var tmp struct {
					TenantID string `json:"tenantId"`
				}
				_ = json.Unmarshal(buf, &tmp)
				ten = tmp.TenantID
			}
		}
		if ten == "" {
			return prefix + ":ip:" + c.RealIP()
		}
		return prefix + ":ten:" + ten
	}
}

// memoryStore is a process-local fixed window. For multi-instance deployments use NewRedisStore.
type memoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	start time.Time
	count int
}

// NewMemoryStore returns a Store that keeps buckets in process memory.
func NewMemoryStore() Store {
	return &memoryStore{buckets: make(map[string]*bucket), now: time.Now}
}

func (m *memoryStore) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buckets[key]
	if !ok || now.Sub(b.start) >= window {
		m.buckets[key] = &bucket{start: now, count: 1}
		return true, 0, nil
	}
	if b.count < limit {
		b.count++
		return true, 0, nil
	}
	remaining := window - now.Sub(b.start)
	return false, int((remaining + time.Second - 1) / time.Second), nil
}
