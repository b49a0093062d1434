package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	edomain "github.com/corvusHold/courier/internal/email/domain"
)

func sampleMessage() edomain.Message {
	return edomain.Message{
		SenderEmail: "alice@acme.io",
		SenderName:  "alice",
		To:          []string{"bob@example.com"},
		Subject:     "Welcome",
		HTML:        "<h1>Hi Bob</h1>",
	}
}

func TestBrevo_SendPostsHTMLPayload(t *testing.T) {
	b := NewBrevo("secret-key", "https://brevo.test/v3/")
	mt := httpmock.NewMockTransport()
	b.http.Transport = mt

	var got brevoEmail
	mt.RegisterResponder(http.MethodPost, "https://brevo.test/v3/smtp/email",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "secret-key", req.Header.Get("api-key"))
			assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
			body, err := io.ReadAll(req.Body)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(body, &got))
			return httpmock.NewStringResponse(http.StatusCreated, `{"messageId":"<abc@smtp-relay>"}`), nil
		})

	require.NoError(t, b.Send(context.Background(), sampleMessage()))
	assert.Equal(t, 1, mt.GetTotalCallCount())
	assert.Equal(t, brevoContact{Email: "alice@acme.io", Name: "alice"}, got.Sender)
	assert.Equal(t, []brevoContact{{Email: "bob@example.com"}}, got.To)
	assert.Equal(t, "Welcome", got.Subject)
	assert.Equal(t, "<h1>Hi Bob</h1>", got.HTMLContent)
}

func TestBrevo_NonSuccessStatusIsError(t *testing.T) {
	b := NewBrevo("secret-key", "")
	mt := httpmock.NewMockTransport()
	b.http.Transport = mt
	mt.RegisterResponder(http.MethodPost, DefaultBrevoBaseURL+"/smtp/email",
		httpmock.NewStringResponder(http.StatusBadRequest, `{"code":"invalid_parameter"}`))

	err := b.Send(context.Background(), sampleMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "invalid_parameter")
}

func TestBrevo_TransportErrorIsError(t *testing.T) {
	b := NewBrevo("secret-key", "")
	mt := httpmock.NewMockTransport()
	b.http.Transport = mt
	mt.RegisterResponder(http.MethodPost, DefaultBrevoBaseURL+"/smtp/email",
		httpmock.NewErrorResponder(errors.New("connection reset")))

	err := b.Send(context.Background(), sampleMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestBrevo_MissingAPIKey(t *testing.T) {
	b := NewBrevo("", "")
	mt := httpmock.NewMockTransport()
	b.http.Transport = mt

	err := b.Send(context.Background(), sampleMessage())
	assert.ErrorIs(t, err, edomain.ErrNotConfigured)
	assert.Zero(t, mt.GetTotalCallCount())
}
