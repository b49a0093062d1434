package service

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/corvusHold/courier/internal/tenants/domain"
)

type service struct {
	repo  domain.Repository
	cache *cache.Cache
}

// New returns a Directory backed by repo. Found creation times are cached for ttl;
// misses and errors always go to the repository.
func New(repo domain.Repository, ttl time.Duration) domain.Directory {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &service{repo: repo, cache: cache.New(ttl, 2*ttl)}
}

func (s *service) CreatedAt(ctx context.Context, tenantID string) (time.Time, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return time.Time{}, domain.ErrTenantNotFound
	}
	if v, ok := s.cache.Get(tenantID); ok {
		return v.(time.Time), nil
	}
	t, err := s.repo.GetByID(ctx, tenantID)
	if err != nil {
		return time.Time{}, err
	}
	s.cache.SetDefault(tenantID, t.CreatedAt)
	return t.CreatedAt, nil
}

type none struct{}

// None is the directory used when no database is configured: every tenant is unknown.
func None() domain.Directory { return none{} }

func (none) CreatedAt(context.Context, string) (time.Time, error) {
	return time.Time{}, domain.ErrTenantNotFound
}
