package domain

import (
	"context"
	"time"
)

// EmailEvent is a unit of dispatch work as stored in the queue.
// Timestamp is the enqueue time in Unix milliseconds and is refreshed on every requeue.
type EmailEvent struct {
	ID          string `json:"id,omitempty"`
	ToAddress   string `json:"toAddress"`
	FromAddress string `json:"fromAddress"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	TenantID    string `json:"tenantId"`
	UserID      string `json:"userId"`
	RetryCount  int    `json:"retryCount"`
	Timestamp   int64  `json:"timestamp"`
}

// EnqueuedAt returns Timestamp as a time.Time.
func (e EmailEvent) EnqueuedAt() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// Store is the durable FIFO for pending events plus the scalar counters used for quota.
// Every method is atomic with respect to the underlying store.
type Store interface {
	// Enqueue appends the event at the producer end of the queue.
	Enqueue(ctx context.Context, e EmailEvent) error
	// Dequeue removes and returns the oldest event, or nil when the queue is empty.
	Dequeue(ctx context.Context) (*EmailEvent, error)
	// Requeue increments RetryCount, refreshes Timestamp and enqueues the event again
	// at the same end as Enqueue.
	Requeue(ctx context.Context, e EmailEvent) error
	// Len reports the number of pending events.
	Len(ctx context.Context) (int64, error)

	// Get returns (value, found, err) for a counter key.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Increment adds one to the counter and returns the new value; a missing key starts at 0.
	Increment(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// IncrementWithTTL adds one like Increment and attaches ttl only when the key has no
	// expiry. An existing expiry is left untouched.
	IncrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}

// Clock is injected where the current time matters.
type Clock func() time.Time

// EnqueueRequest is the producer-facing payload. The queue assigns ID, RetryCount and Timestamp.
type EnqueueRequest struct {
	ToAddress   string `json:"toAddress" validate:"required,email"`
	TenantID    string `json:"tenantId" validate:"required,max=128"`
	UserID      string `json:"userId" validate:"max=128"`
	FromAddress string `json:"fromAddress" validate:"required,email"`
	Subject     string `json:"subject" validate:"required,max=998"`
	Body        string `json:"body"`
}
