package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/corvusHold/courier/internal/metrics"
	qdomain "github.com/corvusHold/courier/internal/queue/domain"
)

// Service is the producer side of the queue.
type Service struct {
	store qdomain.Store
	now   qdomain.Clock
	log   zerolog.Logger
}

func New(store qdomain.Store, log zerolog.Logger) *Service {
	return &Service{store: store, now: time.Now, log: log}
}

func (s *Service) SetClock(now qdomain.Clock) { s.now = now }

// Enqueue stamps a fresh event from req and persists it. Store errors are returned as is.
func (s *Service) Enqueue(ctx context.Context, req qdomain.EnqueueRequest) (qdomain.EmailEvent, error) {
	e := qdomain.EmailEvent{
		ID:          uuid.NewString(),
		ToAddress:   req.ToAddress,
		FromAddress: req.FromAddress,
		Subject:     req.Subject,
		Body:        req.Body,
		TenantID:    req.TenantID,
		UserID:      req.UserID,
		RetryCount:  0,
		Timestamp:   s.now().UnixMilli(),
	}
	if err := s.store.Enqueue(ctx, e); err != nil {
		return qdomain.EmailEvent{}, fmt.Errorf("enqueue email %s: %w", e.ID, err)
	}
	metrics.IncEmailEnqueued()
	s.log.Info().
		Str("event_id", e.ID).
		Str("tenant_id", e.TenantID).
		Str("to", e.ToAddress).
		Msg("email queued for sending")
	return e, nil
}

// Depth reports the number of pending events.
func (s *Service) Depth(ctx context.Context) (int64, error) {
	return s.store.Len(ctx)
}
