package domain

import (
	"context"
	"errors"
)

var (
	// ErrThrowawayDomain marks a recipient on the disposable-domain list. Never retried.
	ErrThrowawayDomain = errors.New("recipient domain is on the throwaway list")
	// ErrQuotaExhausted marks an event deferred because the tenant has no quota left today.
	ErrQuotaExhausted = errors.New("tenant daily quota exhausted")
	// ErrTransientSendFailure wraps any gateway error.
	ErrTransientSendFailure = errors.New("mail gateway send failed")
	// ErrRetryBudgetExceeded is returned when an event is dropped after its last allowed attempt.
	ErrRetryBudgetExceeded = errors.New("retry budget exceeded")
	// ErrStoreUnavailable wraps queue store failures seen by the dispatcher.
	ErrStoreUnavailable = errors.New("queue store unavailable")
	// ErrNoWork is returned by an iteration that found the queue empty.
	ErrNoWork = errors.New("no work available")
)

// Outcome is the result of one dispatcher iteration.
type Outcome string

const (
	OutcomeIdle     Outcome = "idle"
	OutcomeRejected Outcome = "rejected"
	OutcomeRequeued Outcome = "requeued"
	OutcomeSent     Outcome = "sent"
	OutcomeDropped  Outcome = "dropped"
)

// QuotaStatus is the read-only quota view for one tenant and the current UTC day.
type QuotaStatus struct {
	DailyQuota     int `json:"dailyQuota"`
	RemainingQuota int `json:"remainingQuota"`
	UsedQuota      int `json:"usedQuota"`
}

// QuotaTracker decides how many more sends a tenant may make today.
type QuotaTracker interface {
	// Remaining returns the number of sends still allowed today. Errors yield 0.
	Remaining(ctx context.Context, tenantID string) int
	// RecordSend counts one successful send against today's counter.
	RecordSend(ctx context.Context, tenantID string) error
	// Status reports the quota without creating today's counter.
	Status(ctx context.Context, tenantID string) (QuotaStatus, error)
}

// Filter decides whether a recipient must be discarded before any quota is spent.
type Filter interface {
	IsRejected(address string) bool
}
