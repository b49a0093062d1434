package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.DailyQuota)
	assert.Equal(t, 10, cfg.WarmupStart)
	assert.Equal(t, 30, cfg.WarmupDays)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.False(t, cfg.WarmupStrict)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, "email:queue", cfg.QueueKey)
	assert.Equal(t, QueueBackendRedis, cfg.QueueBackend)
	assert.Equal(t, EmailProviderBrevo, cfg.EmailProvider)
	assert.ElementsMatch(t, []string{
		"tempmail.com",
		"throwawaymail.com",
		"temp-mail.org",
		"tempmail.net",
		"disposablemail.com",
	}, cfg.ThrowawayDomains)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DAILY_EMAIL_QUOTA", "250")
	t.Setenv("EMAIL_WARMUP_START", "25")
	t.Setenv("EMAIL_WARMUP_DAYS", "14")
	t.Setenv("EMAIL_PROVIDER", "SMTP")
	t.Setenv("QUEUE_BACKEND", "sqlite")
	t.Setenv("THROWAWAY_DOMAINS", " mailinator.com , ,yopmail.com")
	t.Setenv("DISPATCH_POLL_INTERVAL", "250ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 250, cfg.DailyQuota)
	assert.Equal(t, 25, cfg.WarmupStart)
	assert.Equal(t, 14, cfg.WarmupDays)
	assert.Equal(t, EmailProviderSMTP, cfg.EmailProvider)
	assert.Equal(t, QueueBackendSQLite, cfg.QueueBackend)
	assert.Equal(t, []string{"mailinator.com", "yopmail.com"}, cfg.ThrowawayDomains)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
}

func TestLoad_AggregatesValidationErrors(t *testing.T) {
	t.Setenv("DAILY_EMAIL_QUOTA", "5")
	t.Setenv("EMAIL_WARMUP_START", "10")
	t.Setenv("EMAIL_MAX_RETRIES", "-1")
	t.Setenv("EMAIL_PROVIDER", "carrier-pigeon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EMAIL_WARMUP_START (10) exceeds DAILY_EMAIL_QUOTA (5)")
	assert.Contains(t, err.Error(), "EMAIL_MAX_RETRIES must not be negative")
	assert.Contains(t, err.Error(), `unknown EMAIL_PROVIDER "carrier-pigeon"`)
}

func TestLoad_InvalidNumber(t *testing.T) {
	t.Setenv("DAILY_EMAIL_QUOTA", "lots")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_TenantDirectoryIsOptIn(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.DatabaseURL, "an empty DATABASE_URL disables the tenant directory")

	t.Setenv("DATABASE_URL", "postgres://courier:courier@db:5432/courier")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://courier:courier@db:5432/courier", cfg.DatabaseURL)
}

func TestLoad_EmptyThrowawayDomainsRejectsNothing(t *testing.T) {
	t.Setenv("THROWAWAY_DOMAINS", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.NotNil(t, cfg.ThrowawayDomains)
	assert.Empty(t, cfg.ThrowawayDomains)
}
