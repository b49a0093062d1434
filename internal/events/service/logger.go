package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/corvusHold/courier/internal/events/domain"
)

// Logger is a Publisher that writes every event as a structured log line.
type Logger struct {
	log zerolog.Logger
}

func NewLogger(l zerolog.Logger) *Logger { return &Logger{log: l} }

func (l *Logger) Publish(_ context.Context, e domain.Event) error {
	l.log.Info().
		Str("type", e.Type).
		Str("event_id", e.EventID).
		Str("tenant_id", e.TenantID).
		Str("user_id", e.UserID).
		Fields(map[string]any{"meta": e.Meta}).
		Time("ts", e.Time).
		Msg("event")
	return nil
}
