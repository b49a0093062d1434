package domain

import (
	"context"
	"time"
)

// Delivery outcome event types.
const (
	TypeEmailSent     = "email.sent"
	TypeEmailRejected = "email.rejected"
	TypeEmailDropped  = "email.dropped"
)

// Event records the fate of one queued email.
// Meta carries free-form details such as the recipient, retry count or failure reason.
type Event struct {
	Type     string
	EventID  string
	TenantID string
	UserID   string
	Meta     map[string]string
	Time     time.Time
}

// Publisher publishes events to an external system (log, queue, etc.).
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}
