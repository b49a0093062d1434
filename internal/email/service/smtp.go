package service

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	edomain "github.com/corvusHold/courier/internal/email/domain"
)

// Ensure SMTP implements domain.Sender
var _ edomain.Sender = (*SMTP)(nil)

type SMTP struct {
	host     string
	port     int
	username string
	password string
	now      func() time.Time
}

func NewSMTP(host string, port int, username, password string) *SMTP {
	return &SMTP{host: host, port: port, username: username, password: password, now: time.Now}
}

func (s *SMTP) Send(ctx context.Context, msg edomain.Message) error {
	if s.host == "" {
		return fmt.Errorf("smtp: %w", edomain.ErrNotConfigured)
	}
	raw, err := s.compose(msg)
	if err != nil {
		return fmt.Errorf("smtp: compose message: %w", err)
	}

	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	c, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("smtp: dial %s: %w", addr, err)
	}
	defer func() { _ = c.Close() }()

	// Unblock the client when ctx ends mid-conversation.
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	if s.username != "" {
		if err := c.Auth(sasl.NewPlainClient("", s.username, s.password)); err != nil {
			return fmt.Errorf("smtp: auth: %w", err)
		}
	}
	if err := c.SendMail(msg.SenderEmail, msg.To, bytes.NewReader(raw)); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("smtp: %w", ctx.Err())
		}
		return fmt.Errorf("smtp: send: %w", err)
	}
	return c.Quit()
}

func (s *SMTP) compose(msg edomain.Message) ([]byte, error) {
	var h mail.Header
	h.SetDate(s.now())
	h.SetAddressList("From", []*mail.Address{{Name: msg.SenderName, Address: msg.SenderEmail}})
	to := make([]*mail.Address, 0, len(msg.To))
	for _, addr := range msg.To {
		to = append(to, &mail.Address{Address: addr})
	}
	h.SetAddressList("To", to)
	h.SetSubject(msg.Subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, err
	}
	h.SetContentType("text/html", map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write([]byte(msg.HTML)); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
