package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainFilter_DefaultList(t *testing.T) {
	f := NewDomainFilter(nil)
	cases := map[string]bool{
		"user@tempmail.com":         true,
		"USER@TempMail.COM":         true,
		"x@throwawaymail.com":       true,
		"x@temp-mail.org":           true,
		"x@tempmail.net":            true,
		"x@disposablemail.com":      true,
		"bob@example.com":           false,
		"bob@sub.tempmail.com":      false,
		"bob@tempmail.com.evil.org": false,
		"no-at-sign":                false,
		"":                          false,
	}
	for addr, want := range cases {
		assert.Equal(t, want, f.IsRejected(addr), addr)
	}
}

func TestDomainFilter_ConfiguredList(t *testing.T) {
	f := NewDomainFilter([]string{" Mailinator.com ", ""})
	assert.True(t, f.IsRejected("a@mailinator.com"))
	assert.False(t, f.IsRejected("a@tempmail.com"))
}

func TestDomainFilter_EmptyListRejectsNothing(t *testing.T) {
	f := NewDomainFilter([]string{})
	assert.False(t, f.IsRejected("a@tempmail.com"))
}
