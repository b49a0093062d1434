package service

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvusHold/courier/internal/events/domain"
)

func TestLogger_PublishWritesStructuredLine(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogger(zerolog.New(&buf))

	err := p.Publish(context.Background(), domain.Event{
		Type:     domain.TypeEmailDropped,
		EventID:  "evt-1",
		TenantID: "tenant007",
		UserID:   "alice",
		Meta:     map[string]string{"reason": "retry budget exceeded"},
		Time:     time.Date(2024, 6, 11, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "email.dropped", line["type"])
	assert.Equal(t, "evt-1", line["event_id"])
	assert.Equal(t, "tenant007", line["tenant_id"])
	assert.Equal(t, map[string]any{"reason": "retry budget exceeded"}, line["meta"])
}
