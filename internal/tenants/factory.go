package tenants

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/corvusHold/courier/internal/tenants/domain"
	repo "github.com/corvusHold/courier/internal/tenants/repository"
	svc "github.com/corvusHold/courier/internal/tenants/service"
)

// NewDirectory wires the tenant directory. A nil pool yields a directory where every tenant is unknown.
func NewDirectory(pg *pgxpool.Pool, cacheTTL time.Duration) domain.Directory {
	if pg == nil {
		return svc.None()
	}
	return svc.New(repo.New(pg), cacheTTL)
}
