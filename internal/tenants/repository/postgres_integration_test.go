package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvusHold/courier/internal/tenants/domain"
)

func TestPGRepository_CreateAndGet_Integration(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("skipping integration test: DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, os.Getenv("DATABASE_URL"))
	require.NoError(t, err)
	defer pool.Close()

	repo := New(pool)
	require.NoError(t, repo.Ping(ctx))

	id := "itest-" + uuid.NewString()
	created, err := repo.Create(ctx, id, "Integration Tenant")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), created.CreatedAt, time.Minute)

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Integration Tenant", got.Name)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))

	_, err = repo.GetByID(ctx, "missing-"+uuid.NewString())
	assert.True(t, errors.Is(err, domain.ErrTenantNotFound))
}
