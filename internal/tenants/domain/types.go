package domain

import (
	"context"
	"errors"
	"time"
)

// ErrTenantNotFound is returned when the directory has no record for a tenant.
var ErrTenantNotFound = errors.New("tenant not found")

// Tenant is the directory record. ID is the opaque identifier carried on queued emails.
type Tenant struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Repository abstracts persistence for tenants.
type Repository interface {
	Create(ctx context.Context, id, name string) (Tenant, error)
	GetByID(ctx context.Context, id string) (Tenant, error)
	Ping(ctx context.Context) error
}

// Directory answers when a tenant was created. The quota warm-up is keyed on it.
type Directory interface {
	CreatedAt(ctx context.Context, tenantID string) (time.Time, error)
}
