package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	edomain "github.com/corvusHold/courier/internal/email/domain"
)

// DefaultBrevoBaseURL is the Brevo v3 REST root.
const DefaultBrevoBaseURL = "https://api.brevo.com/v3"

// Ensure Brevo implements domain.Sender
var _ edomain.Sender = (*Brevo)(nil)

type Brevo struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewBrevo builds a transactional-email client. An empty baseURL falls back to DefaultBrevoBaseURL.
func NewBrevo(apiKey, baseURL string) *Brevo {
	if baseURL == "" {
		baseURL = DefaultBrevoBaseURL
	}
	return &Brevo{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type brevoContact struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoEmail struct {
	Sender      brevoContact   `json:"sender"`
	To          []brevoContact `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
}

func (b *Brevo) Send(ctx context.Context, msg edomain.Message) error {
	if b.apiKey == "" {
		return fmt.Errorf("brevo: %w", edomain.ErrNotConfigured)
	}
	payload := brevoEmail{
		Sender:      brevoContact{Email: msg.SenderEmail, Name: msg.SenderName},
		Subject:     msg.Subject,
		HTMLContent: msg.HTML,
	}
	for _, to := range msg.To {
		payload.To = append(payload.To, brevoContact{Email: to})
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("brevo: encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/smtp/email", bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", b.apiKey)
	resp, err := b.http.Do(req)
	if err != nil {
		return fmt.Errorf("brevo: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("brevo send failed: %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}
	return nil
}
