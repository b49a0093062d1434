package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/corvusHold/courier/internal/tenants/domain"
)

var _ domain.Repository = (*PGRepository)(nil)

type PGRepository struct {
	pg *pgxpool.Pool
}

func New(pg *pgxpool.Pool) *PGRepository {
	return &PGRepository{pg: pg}
}

func (r *PGRepository) Create(ctx context.Context, id, name string) (domain.Tenant, error) {
	var t domain.Tenant
	err := r.pg.QueryRow(ctx,
		`INSERT INTO tenants (id, name) VALUES ($1, $2) RETURNING id, name, created_at`,
		id, name,
	).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err != nil {
		return domain.Tenant{}, fmt.Errorf("create tenant %s: %w", id, err)
	}
	return t, nil
}

func (r *PGRepository) GetByID(ctx context.Context, id string) (domain.Tenant, error) {
	var t domain.Tenant
	err := r.pg.QueryRow(ctx,
		`SELECT id, name, created_at FROM tenants WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Tenant{}, domain.ErrTenantNotFound
	}
	if err != nil {
		return domain.Tenant{}, fmt.Errorf("get tenant %s: %w", id, err)
	}
	return t, nil
}

func (r *PGRepository) Ping(ctx context.Context) error {
	return r.pg.Ping(ctx)
}
