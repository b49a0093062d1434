package domain

import (
	"context"
	"errors"
	"strings"
)

// ErrNotConfigured is returned by a Sender whose provider credentials are missing.
var ErrNotConfigured = errors.New("email provider not configured")

// Message is one outbound email with a single HTML body.
// SenderName is the display name shown next to SenderEmail and may be empty.
type Message struct {
	SenderEmail string
	SenderName  string
	To          []string
	Subject     string
	HTML        string
}

// Sender delivers a Message through an external provider.
// Any returned error means the message was not accepted and may be retried.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderName derives a display name from the local part of an address.
// An address without "@" is returned unchanged.
func SenderName(address string) string {
	if i := strings.Index(address, "@"); i >= 0 {
		return address[:i]
	}
	return address
}
