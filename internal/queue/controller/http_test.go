package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ddomain "github.com/corvusHold/courier/internal/dispatch/domain"
	rl "github.com/corvusHold/courier/internal/platform/ratelimit"
	"github.com/corvusHold/courier/internal/platform/validation"
	qdomain "github.com/corvusHold/courier/internal/queue/domain"
)

type fakeEnqueuer struct {
	got []qdomain.EnqueueRequest
	err error
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, req qdomain.EnqueueRequest) (qdomain.EmailEvent, error) {
	if f.err != nil {
		return qdomain.EmailEvent{}, f.err
	}
	f.got = append(f.got, req)
	return qdomain.EmailEvent{ID: "0b9a1c2e-0000-4000-8000-000000000001"}, nil
}

type fakeQuotaReader struct {
	status ddomain.QuotaStatus
	err    error
	asked  string
}

func (f *fakeQuotaReader) Status(_ context.Context, tenantID string) (ddomain.QuotaStatus, error) {
	f.asked = tenantID
	return f.status, f.err
}

func newTestEcho(h *Controller) *echo.Echo {
	e := echo.New()
	e.Validator = validation.New()
	h.Register(e)
	return e
}

const validBody = `{"toAddress":"bob@example.com","tenantId":"tenant007","userId":"alice","fromAddress":"alice@acme.io","subject":"Hi","body":"<p>Hello</p>"}`

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSend_Queues(t *testing.T) {
	q := &fakeEnqueuer{}
	e := newTestEcho(New(q, &fakeQuotaReader{}))

	rec := doJSON(e, http.MethodPost, "/api/v1/email/send", validBody)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Email queued successfully", resp["message"])
	assert.NotEmpty(t, resp["id"])

	require.Len(t, q.got, 1)
	assert.Equal(t, qdomain.EnqueueRequest{
		ToAddress:   "bob@example.com",
		TenantID:    "tenant007",
		UserID:      "alice",
		FromAddress: "alice@acme.io",
		Subject:     "Hi",
		Body:        "<p>Hello</p>",
	}, q.got[0])
}

func TestSend_ValidationFailure(t *testing.T) {
	q := &fakeEnqueuer{}
	e := newTestEcho(New(q, &fakeQuotaReader{}))

	rec := doJSON(e, http.MethodPost, "/api/v1/email/send", `{"toAddress":"not-an-email","fromAddress":"alice@acme.io"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body validation.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "validation_failed", body.Error)
	assert.Contains(t, body.Fields, "toAddress")
	assert.Contains(t, body.Fields, "tenantId")
	assert.Contains(t, body.Fields, "subject")
	assert.Empty(t, q.got)
}

func TestSend_MalformedJSON(t *testing.T) {
	e := newTestEcho(New(&fakeEnqueuer{}, &fakeQuotaReader{}))
	rec := doJSON(e, http.MethodPost, "/api/v1/email/send", `{"toAddress":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSend_StoreFailure(t *testing.T) {
	e := newTestEcho(New(&fakeEnqueuer{err: errors.New("redis: connection refused")}, &fakeQuotaReader{}))
	rec := doJSON(e, http.MethodPost, "/api/v1/email/send", validBody)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "redis")
}

func TestSend_RateLimitedPerTenant(t *testing.T) {
	h := New(&fakeEnqueuer{}, &fakeQuotaReader{}).WithRateLimit(rl.NewMemoryStore(), 1, time.Minute)
	e := newTestEcho(h)

	assert.Equal(t, http.StatusOK, doJSON(e, http.MethodPost, "/api/v1/email/send", validBody).Code)
	assert.Equal(t, http.StatusTooManyRequests, doJSON(e, http.MethodPost, "/api/v1/email/send", validBody).Code)
}

func TestQuotaStatus(t *testing.T) {
	qr := &fakeQuotaReader{status: ddomain.QuotaStatus{DailyQuota: 100, RemainingQuota: 58, UsedQuota: 42}}
	e := newTestEcho(New(&fakeEnqueuer{}, qr))

	rec := doJSON(e, http.MethodGet, "/api/v1/email/quota/tenant007", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"dailyQuota":100,"remainingQuota":58,"usedQuota":42}`, rec.Body.String())
	assert.Equal(t, "tenant007", qr.asked)
}

func TestQuotaStatus_Error(t *testing.T) {
	e := newTestEcho(New(&fakeEnqueuer{}, &fakeQuotaReader{err: errors.New("boom")}))
	rec := doJSON(e, http.MethodGet, "/api/v1/email/quota/tenant007", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
