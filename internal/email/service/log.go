package service

import (
	"context"

	"github.com/rs/zerolog"

	edomain "github.com/corvusHold/courier/internal/email/domain"
)

// Ensure Log implements domain.Sender
var _ edomain.Sender = (*Log)(nil)

// Log accepts every message and only writes it to the logger. Meant for local development.
type Log struct {
	log zerolog.Logger
}

func NewLog(l zerolog.Logger) *Log { return &Log{log: l} }

func (s *Log) Send(_ context.Context, msg edomain.Message) error {
	s.log.Info().
		Str("sender", msg.SenderEmail).
		Str("sender_name", msg.SenderName).
		Strs("to", msg.To).
		Str("subject", msg.Subject).
		Int("html_bytes", len(msg.HTML)).
		Msg("email accepted by log provider")
	return nil
}
