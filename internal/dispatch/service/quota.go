package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	ddomain "github.com/corvusHold/courier/internal/dispatch/domain"
	qdomain "github.com/corvusHold/courier/internal/queue/domain"
	tdomain "github.com/corvusHold/courier/internal/tenants/domain"
)

// CounterTTL is the lifetime of a daily quota counter.
const CounterTTL = 24 * time.Hour

var _ ddomain.QuotaTracker = (*Quota)(nil)

// QuotaConfig holds the quota knobs.
type QuotaConfig struct {
	DailyQuota  int
	WarmupStart int
	WarmupDays  int
	// Strict applies the warm-up ceiling for the whole day, not only to the first check.
	Strict bool
}

// Quota tracks per-tenant daily sends in the queue store's counters.
// Counter keys are quota:{tenantId}:{YYYY-MM-DD} on the UTC calendar.
type Quota struct {
	store qdomain.Store
	dir   tdomain.Directory
	cfg   QuotaConfig
	now   qdomain.Clock
	log   zerolog.Logger
}

func NewQuota(store qdomain.Store, dir tdomain.Directory, cfg QuotaConfig, log zerolog.Logger) *Quota {
	return &Quota{store: store, dir: dir, cfg: cfg, now: time.Now, log: log}
}

// SetClock overrides the clock used for the day key and tenant age.
func (q *Quota) SetClock(now qdomain.Clock) { q.now = now }

// QuotaKey returns the counter key for tenantID on the UTC date of day.
func QuotaKey(tenantID string, day time.Time) string {
	return "quota:" + tenantID + ":" + day.UTC().Format("2006-01-02")
}

// WarmupQuota is the daily allowance of a tenant created days ago.
// It grows linearly from start to daily over warmupDays and never exceeds daily.
func WarmupQuota(days, start, warmupDays, daily int) int {
	if warmupDays <= 0 {
		return daily
	}
	if days < 0 {
		days = 0
	}
	q := start + days*(daily-start)/warmupDays
	if q > daily {
		return daily
	}
	return q
}

func (q *Quota) Remaining(ctx context.Context, tenantID string) int {
	key := QuotaKey(tenantID, q.now())
	log := q.log.With().Str("tenant_id", tenantID).Str("key", key).Logger()

	raw, found, err := q.store.Get(ctx, key)
	if err != nil {
		log.Error().Err(err).Msg("quota counter read failed")
		return 0
	}
	if !found {
		ceiling, err := q.ceiling(ctx, tenantID)
		if err != nil {
			log.Error().Err(err).Msg("tenant lookup failed")
			return 0
		}
		if err := q.initCounter(ctx, key); err != nil {
			log.Error().Err(err).Msg("quota counter init failed")
			return 0
		}
		log.Debug().Int("quota", ceiling).Msg("quota counter initialized")
		return ceiling
	}

	used, err := strconv.Atoi(raw)
	if err != nil {
		log.Error().Err(err).Str("value", raw).Msg("quota counter is not an integer")
		return 0
	}
	limit := q.cfg.DailyQuota
	if q.cfg.Strict {
		if limit, err = q.ceiling(ctx, tenantID); err != nil {
			log.Error().Err(err).Msg("tenant lookup failed")
			return 0
		}
	}
	return limit - used
}

func (q *Quota) RecordSend(ctx context.Context, tenantID string) error {
	// A counter that expired or was never initialized gets a lifetime; a live one keeps its own.
	if _, err := q.store.IncrementWithTTL(ctx, QuotaKey(tenantID, q.now()), CounterTTL); err != nil {
		return fmt.Errorf("record send for %s: %w", tenantID, err)
	}
	return nil
}

func (q *Quota) Status(ctx context.Context, tenantID string) (ddomain.QuotaStatus, error) {
	key := QuotaKey(tenantID, q.now())
	raw, found, err := q.store.Get(ctx, key)
	if err != nil {
		return ddomain.QuotaStatus{}, fmt.Errorf("read %s: %w", key, err)
	}
	if !found {
		ceiling, err := q.ceiling(ctx, tenantID)
		if err != nil {
			return ddomain.QuotaStatus{}, err
		}
		return ddomain.QuotaStatus{DailyQuota: ceiling, RemainingQuota: ceiling}, nil
	}
	used, err := strconv.Atoi(raw)
	if err != nil {
		return ddomain.QuotaStatus{}, fmt.Errorf("parse %s: %w", key, err)
	}
	limit := q.cfg.DailyQuota
	if q.cfg.Strict {
		if limit, err = q.ceiling(ctx, tenantID); err != nil {
			return ddomain.QuotaStatus{}, err
		}
	}
	return ddomain.QuotaStatus{DailyQuota: limit, RemainingQuota: max(limit-used, 0), UsedQuota: used}, nil
}

// ceiling is today's warm-up allowance; unknown tenants get the starting value.
func (q *Quota) ceiling(ctx context.Context, tenantID string) (int, error) {
	created, err := q.dir.CreatedAt(ctx, tenantID)
	if errors.Is(err, tdomain.ErrTenantNotFound) {
		return q.cfg.WarmupStart, nil
	}
	if err != nil {
		return 0, fmt.Errorf("tenant %s creation time: %w", tenantID, err)
	}
	days := int(q.now().Sub(created) / (24 * time.Hour))
	return WarmupQuota(days, q.cfg.WarmupStart, q.cfg.WarmupDays, q.cfg.DailyQuota), nil
}

func (q *Quota) initCounter(ctx context.Context, key string) error {
	if err := q.store.Set(ctx, key, "0"); err != nil {
		return err
	}
	return q.store.Expire(ctx, key, CounterTTL)
}
