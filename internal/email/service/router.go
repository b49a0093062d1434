package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/corvusHold/courier/internal/config"
	edomain "github.com/corvusHold/courier/internal/email/domain"
)

// NewSender constructs the gateway selected by cfg.EmailProvider.
func NewSender(ctx context.Context, cfg config.Config, l zerolog.Logger) (edomain.Sender, error) {
	switch strings.ToLower(cfg.EmailProvider) {
	case config.EmailProviderBrevo:
		return NewBrevo(cfg.BrevoAPIKey, cfg.BrevoBaseURL), nil
	case config.EmailProviderSMTP:
		return NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword), nil
	case config.EmailProviderSES:
		return NewSES(ctx, cfg.SesMaxBackoffDelay, cfg.SesMaxAttempts)
	case config.EmailProviderLog:
		return NewLog(l), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.EmailProvider)
	}
}
