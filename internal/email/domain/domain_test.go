package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSenderName(t *testing.T) {
	assert.Equal(t, "alice", SenderName("alice@acme.io"))
	assert.Equal(t, "no-reply", SenderName("no-reply@mail.acme.io"))
	assert.Equal(t, "localonly", SenderName("localonly"))
	assert.Equal(t, "", SenderName("@acme.io"))
}
