package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	ddomain "github.com/corvusHold/courier/internal/dispatch/domain"
	edomain "github.com/corvusHold/courier/internal/email/domain"
	evdomain "github.com/corvusHold/courier/internal/events/domain"
	"github.com/corvusHold/courier/internal/metrics"
	qdomain "github.com/corvusHold/courier/internal/queue/domain"
)

// Config bounds the dispatcher's retry and polling behaviour.
type Config struct {
	// MaxRetries is the number of requeues an event may receive before it is dropped.
	MaxRetries int
	// PollInterval is the pause after an empty poll or a store failure.
	PollInterval time.Duration
	// SendTimeout bounds one iteration's store and gateway calls.
	SendTimeout time.Duration
}

var errIterationPanic = errors.New("dispatch iteration panicked")

// Dispatcher is the single consumer of the queue. It filters, applies quota, sends and
// retries one event per iteration.
type Dispatcher struct {
	store     qdomain.Store
	filter    ddomain.Filter
	quota     ddomain.QuotaTracker
	sender    edomain.Sender
	publisher evdomain.Publisher
	cfg       Config
	log       zerolog.Logger
	now       qdomain.Clock
}

func NewDispatcher(store qdomain.Store, filter ddomain.Filter, quota ddomain.QuotaTracker, sender edomain.Sender, cfg Config) *Dispatcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 30 * time.Second
	}
	return &Dispatcher{
		store:     store,
		filter:    filter,
		quota:     quota,
		sender:    sender,
		publisher: nopPublisher{},
		cfg:       cfg,
		log:       zerolog.Nop(),
		now:       time.Now,
	}
}

// SetLogger sets the logger used by the dispatcher.
func (d *Dispatcher) SetLogger(l zerolog.Logger) { d.log = l }

// SetPublisher sets the sink for email.sent, email.rejected and email.dropped events.
func (d *Dispatcher) SetPublisher(p evdomain.Publisher) {
	if p == nil {
		p = nopPublisher{}
	}
	d.publisher = p
}

func (d *Dispatcher) SetClock(now qdomain.Clock) { d.now = now }

// Run processes events until ctx is done and returns ctx.Err().
// An event already dequeued when ctx ends is still finished.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.log.Info().
		Int("max_retries", d.cfg.MaxRetries).
		Dur("poll_interval", d.cfg.PollInterval).
		Msg("dispatcher started")
	defer d.log.Info().Msg("dispatcher stopped")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, err := d.iterate(ctx)
		if errors.Is(err, ddomain.ErrNoWork) || errors.Is(err, ddomain.ErrStoreUnavailable) || errors.Is(err, errIterationPanic) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.cfg.PollInterval):
			}
		}
	}
}

func (d *Dispatcher) iterate(parent context.Context) (outcome ddomain.Outcome, err error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), d.cfg.SendTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			metrics.IncDispatchOutcome("panic")
			d.log.Error().Interface("panic", r).Msg("dispatch iteration panicked")
			outcome, err = ddomain.OutcomeIdle, fmt.Errorf("%w: %v", errIterationPanic, r)
		}
	}()
	return d.ProcessOnce(ctx)
}

// ProcessOnce handles at most one event. It returns ErrNoWork when the queue is empty
// and a nil error only for OutcomeSent. Other errors name why the event was not sent.
func (d *Dispatcher) ProcessOnce(ctx context.Context) (ddomain.Outcome, error) {
	e, err := d.store.Dequeue(ctx)
	if err != nil {
		metrics.IncDispatchOutcome("store_error")
		d.log.Error().Err(err).Msg("dequeue failed")
		return ddomain.OutcomeIdle, fmt.Errorf("%w: dequeue: %w", ddomain.ErrStoreUnavailable, err)
	}
	if e == nil {
		metrics.IncDispatchOutcome(string(ddomain.OutcomeIdle))
		return ddomain.OutcomeIdle, ddomain.ErrNoWork
	}

	start := time.Now()
	outcome, err := d.handle(ctx, *e)
	metrics.ObserveDispatchIteration(time.Since(start).Seconds())
	metrics.IncDispatchOutcome(string(outcome))
	return outcome, err
}

func (d *Dispatcher) handle(ctx context.Context, e qdomain.EmailEvent) (ddomain.Outcome, error) {
	log := d.log.With().
		Str("event_id", e.ID).
		Str("tenant_id", e.TenantID).
		Str("to", e.ToAddress).
		Int("retry_count", e.RetryCount).
		Dur("queued_for", d.now().Sub(e.EnqueuedAt())).
		Logger()

	if d.filter.IsRejected(e.ToAddress) {
		log.Warn().Msg("recipient on throwaway domain list, dropping email")
		d.publish(ctx, evdomain.TypeEmailRejected, e, map[string]string{"reason": ddomain.ErrThrowawayDomain.Error()})
		return ddomain.OutcomeRejected, ddomain.ErrThrowawayDomain
	}

	if remaining := d.quota.Remaining(ctx, e.TenantID); remaining <= 0 {
		metrics.IncEmailThrottled(e.TenantID)
		log.Info().Int("remaining", remaining).Msg("tenant quota exhausted")
		return d.retry(ctx, log, e, ddomain.ErrQuotaExhausted)
	}

	msg := edomain.Message{
		SenderEmail: e.FromAddress,
		SenderName:  edomain.SenderName(e.FromAddress),
		To:          []string{e.ToAddress},
		Subject:     e.Subject,
		HTML:        e.Body,
	}
	if err := d.sender.Send(ctx, msg); err != nil {
		metrics.IncEmailFailedSend(e.TenantID)
		log.Warn().Err(err).Msg("email send failed")
		return d.retry(ctx, log, e, fmt.Errorf("%w: %w", ddomain.ErrTransientSendFailure, err))
	}

	metrics.IncEmailSent(e.TenantID)
	if err := d.quota.RecordSend(ctx, e.TenantID); err != nil {
		log.Error().Err(err).Msg("email sent but quota counter not updated")
	}
	log.Info().Msg("email sent")
	d.publish(ctx, evdomain.TypeEmailSent, e, nil)
	return ddomain.OutcomeSent, nil
}

// retry requeues e while it has budget left and drops it otherwise.
func (d *Dispatcher) retry(ctx context.Context, log zerolog.Logger, e qdomain.EmailEvent, reason error) (ddomain.Outcome, error) {
	if e.RetryCount >= d.cfg.MaxRetries {
		log.Error().Err(reason).Int("max_retries", d.cfg.MaxRetries).Msg("retry budget exhausted, dropping email")
		d.publish(ctx, evdomain.TypeEmailDropped, e, map[string]string{"reason": reason.Error()})
		return ddomain.OutcomeDropped, fmt.Errorf("%w: %w", ddomain.ErrRetryBudgetExceeded, reason)
	}
	if err := d.store.Requeue(ctx, e); err != nil {
		log.Error().Err(err).AnErr("reason", reason).Msg("requeue failed, email lost")
		d.publish(ctx, evdomain.TypeEmailDropped, e, map[string]string{
			"reason":        "requeue failed",
			"requeue_error": err.Error(),
		})
		return ddomain.OutcomeDropped, fmt.Errorf("%w: requeue: %w", ddomain.ErrStoreUnavailable, err)
	}
	log.Debug().Err(reason).Msg("email requeued")
	return ddomain.OutcomeRequeued, reason
}

func (d *Dispatcher) publish(ctx context.Context, typ string, e qdomain.EmailEvent, meta map[string]string) {
	if meta == nil {
		meta = map[string]string{}
	}
	meta["to"] = e.ToAddress
	meta["retry_count"] = strconv.Itoa(e.RetryCount)
	ev := evdomain.Event{
		Type:     typ,
		EventID:  e.ID,
		TenantID: e.TenantID,
		UserID:   e.UserID,
		Meta:     meta,
		Time:     d.now(),
	}
	if err := d.publisher.Publish(ctx, ev); err != nil {
		d.log.Warn().Err(err).Str("type", typ).Msg("event publish failed")
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, evdomain.Event) error { return nil }
