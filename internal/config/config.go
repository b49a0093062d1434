package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/go-multierror"
)

const (
	QueueBackendRedis  = "redis"
	QueueBackendSQLite = "sqlite"

	EmailProviderBrevo = "brevo"
	EmailProviderSMTP  = "smtp"
	EmailProviderSES   = "ses"
	EmailProviderLog   = "log"
)

// DefaultThrowawayDomains is the reject list used when THROWAWAY_DOMAINS is unset.
var DefaultThrowawayDomains = []string{"tempmail.com", "throwawaymail.com", "temp-mail.org", "tempmail.net", "disposablemail.com"}

type Config struct {
	AppEnv             string   `env:"APP_ENV" envDefault:"development"`
	AppAddr            string   `env:"APP_ADDR" envDefault:":8080"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:8080,http://localhost:5173" envSeparator:","`

	// DatabaseURL points at the tenant directory. Unset or empty disables lookups and
	// every tenant is treated as unknown.
	DatabaseURL    string        `env:"DATABASE_URL"`
	TenantCacheTTL time.Duration `env:"TENANT_CACHE_TTL" envDefault:"5m"`

	QueueBackend    string `env:"QUEUE_BACKEND" envDefault:"redis"` // redis | sqlite
	QueueKey        string `env:"EMAIL_QUEUE_KEY" envDefault:"email:queue"`
	RedisAddr       string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB         int    `env:"REDIS_DB" envDefault:"0"`
	QueueSQLitePath string `env:"QUEUE_SQLITE_PATH" envDefault:"courier.db"`

	DailyQuota   int  `env:"DAILY_EMAIL_QUOTA" envDefault:"100"`
	WarmupStart  int  `env:"EMAIL_WARMUP_START" envDefault:"10"`
	WarmupDays   int  `env:"EMAIL_WARMUP_DAYS" envDefault:"30"`
	WarmupStrict bool `env:"EMAIL_WARMUP_STRICT" envDefault:"false"`
	MaxRetries   int  `env:"EMAIL_MAX_RETRIES" envDefault:"3"`

	// ThrowawayDomains defaults to DefaultThrowawayDomains only when THROWAWAY_DOMAINS is
	// unset; an empty value rejects nothing.
	ThrowawayDomains []string `env:"THROWAWAY_DOMAINS" envSeparator:","`

	PollInterval time.Duration `env:"DISPATCH_POLL_INTERVAL" envDefault:"1s"`
	SendTimeout  time.Duration `env:"DISPATCH_SEND_TIMEOUT" envDefault:"30s"`

	EmailProvider      string        `env:"EMAIL_PROVIDER" envDefault:"brevo"` // brevo | smtp | ses | log
	BrevoAPIKey        string        `env:"BREVO_API_KEY"`
	BrevoBaseURL       string        `env:"BREVO_BASE_URL" envDefault:"https://api.brevo.com/v3"`
	SMTPHost           string        `env:"SMTP_HOST" envDefault:"localhost"`
	SMTPPort           int           `env:"SMTP_PORT" envDefault:"1025"`
	SMTPUsername       string        `env:"SMTP_USERNAME"`
	SMTPPassword       string        `env:"SMTP_PASSWORD"`
	SesMaxBackoffDelay time.Duration `env:"SES_MAX_BACKOFF_DELAY" envDefault:"5s"`
	SesMaxAttempts     int           `env:"SES_MAX_ATTEMPTS" envDefault:"3"`

	SendRateLimit  int           `env:"SEND_RATE_LIMIT" envDefault:"60"`
	SendRateWindow time.Duration `env:"SEND_RATE_WINDOW" envDefault:"1m"`
}

// Load reads the configuration from the environment and validates it.
func Load() (Config, error) {
	c := Config{}
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("unable to parse configuration from environment: %w", err)
	}

	c.QueueBackend = strings.ToLower(strings.TrimSpace(c.QueueBackend))
	c.EmailProvider = strings.ToLower(strings.TrimSpace(c.EmailProvider))
	c.CORSAllowedOrigins = trimAll(c.CORSAllowedOrigins)
	if len(c.CORSAllowedOrigins) == 0 {
		c.CORSAllowedOrigins = []string{"*"}
	}
	if _, set := os.LookupEnv("THROWAWAY_DOMAINS"); set {
		c.ThrowawayDomains = trimAll(c.ThrowawayDomains)
	} else {
		c.ThrowawayDomains = append([]string(nil), DefaultThrowawayDomains...)
	}
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)

	if err := c.validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration settings: %w", err)
	}
	return c, nil
}

func (c Config) validate() error {
	var errs *multierror.Error
	if c.DailyQuota < 0 {
		errs = multierror.Append(errs, errors.New("DAILY_EMAIL_QUOTA must not be negative"))
	}
	if c.WarmupStart < 0 {
		errs = multierror.Append(errs, errors.New("EMAIL_WARMUP_START must not be negative"))
	}
	if c.WarmupStart > c.DailyQuota {
		errs = multierror.Append(errs, fmt.Errorf("EMAIL_WARMUP_START (%d) exceeds DAILY_EMAIL_QUOTA (%d)", c.WarmupStart, c.DailyQuota))
	}
	if c.WarmupDays < 0 {
		errs = multierror.Append(errs, errors.New("EMAIL_WARMUP_DAYS must not be negative"))
	}
	if c.MaxRetries < 0 {
		errs = multierror.Append(errs, errors.New("EMAIL_MAX_RETRIES must not be negative"))
	}
	if c.PollInterval <= 0 {
		errs = multierror.Append(errs, errors.New("DISPATCH_POLL_INTERVAL must be positive"))
	}
	if c.SendTimeout <= 0 {
		errs = multierror.Append(errs, errors.New("DISPATCH_SEND_TIMEOUT must be positive"))
	}
	switch c.QueueBackend {
	case QueueBackendRedis, QueueBackendSQLite:
	default:
		errs = multierror.Append(errs, fmt.Errorf("unknown QUEUE_BACKEND %q", c.QueueBackend))
	}
	switch c.EmailProvider {
	case EmailProviderBrevo, EmailProviderSMTP, EmailProviderSES, EmailProviderLog:
	default:
		errs = multierror.Append(errs, fmt.Errorf("unknown EMAIL_PROVIDER %q", c.EmailProvider))
	}
	return errs.ErrorOrNil()
}

func trimAll(in []string) []string {
	res := make([]string, 0, len(in))
	for _, p := range in {
		p = strings.TrimSpace(p)
		if p != "" {
			res = append(res, p)
		}
	}
	return res
}

func (c Config) String() string {
	return fmt.Sprintf("env=%s addr=%s queue=%s provider=%s quota=%d warmup=%d/%dd", c.AppEnv, c.AppAddr, c.QueueBackend, c.EmailProvider, c.DailyQuota, c.WarmupStart, c.WarmupDays)
}
