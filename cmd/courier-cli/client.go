package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// SendRequest mirrors the enqueue payload of POST /api/v1/email/send.
type SendRequest struct {
	ToAddress   string `json:"toAddress" yaml:"toAddress"`
	TenantID    string `json:"tenantId" yaml:"tenantId"`
	UserID      string `json:"userId,omitempty" yaml:"userId,omitempty"`
	FromAddress string `json:"fromAddress" yaml:"fromAddress"`
	Subject     string `json:"subject" yaml:"subject"`
	Body        string `json:"body" yaml:"body"`
}

type SendResponse struct {
	Message string `json:"message" yaml:"message"`
	ID      string `json:"id" yaml:"id"`
}

type QuotaResponse struct {
	DailyQuota     int `json:"dailyQuota" yaml:"dailyQuota"`
	RemainingQuota int `json:"remainingQuota" yaml:"remainingQuota"`
	UsedQuota      int `json:"usedQuota" yaml:"usedQuota"`
}

type HealthResponse struct {
	Status     string `json:"status" yaml:"status"`
	Time       string `json:"time" yaml:"time"`
	Queue      string `json:"queue" yaml:"queue"`
	QueueDepth *int64 `json:"queueDepth,omitempty" yaml:"queueDepth,omitempty"`
	Directory  string `json:"directory" yaml:"directory"`
}

type ErrorResponse struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// APIError is returned for any response with status >= 400.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Message)
}

// CourierClient talks to the courier HTTP API.
type CourierClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *CourierClient {
	return &CourierClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *CourierClient) SendEmail(ctx context.Context, req SendRequest) (SendResponse, error) {
	var out SendResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/email/send", req, &out)
	return out, err
}

func (c *CourierClient) Quota(ctx context.Context, tenantID string) (QuotaResponse, error) {
	var out QuotaResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/email/quota/"+url.PathEscape(tenantID), nil, &out)
	return out, err
}

// Health returns the health document. A 503 still carries a body and is not an error.
func (c *CourierClient) Health(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.do(ctx, http.MethodGet, "/healthz", nil, &out)
	var apiErr *APIError
	if err != nil && errors.As(err, &apiErr) && apiErr.Status == http.StatusServiceUnavailable && out.Status != "" {
		return out, nil
	}
	return out, err
}

func (c *CourierClient) do(ctx context.Context, method, path string, body, target any) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	u := c.BaseURL + path
	logVerbose("Making %s request to %s", method, u)

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	logVerbose("Response status: %s", resp.Status)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if target != nil && len(raw) > 0 {
		// Health reports 503 with a full body, so decode before checking the status.
		if err := json.Unmarshal(raw, target); err != nil && resp.StatusCode < 400 {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	if resp.StatusCode >= 400 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	return nil
}

func errorMessage(raw []byte) string {
	var er ErrorResponse
	if err := json.Unmarshal(raw, &er); err != nil || er.Error == "" {
		return strings.TrimSpace(string(raw))
	}
	if len(er.Fields) == 0 {
		return er.Error
	}
	names := make([]string, 0, len(er.Fields))
	for f := range er.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, f := range names {
		parts = append(parts, f+"="+strings.Join(er.Fields[f], "|"))
	}
	return er.Error + ": " + strings.Join(parts, ", ")
}
