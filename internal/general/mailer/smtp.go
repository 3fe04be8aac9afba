// Package mailer sends plain-text email over SMTP.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"delivery-realtime/internal/general/config"
	"delivery-realtime/internal/ports"
)

// ErrDisabled is returned when no SMTP host is configured.
var ErrDisabled = errors.New("mailer: smtp is not configured")

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer implements ports.Mailer.
type SMTPMailer struct {
	addr string
	host string
	from string
	auth smtp.Auth
	send sendFunc
	now  func() time.Time
}

var _ ports.Mailer = (*SMTPMailer)(nil)

// New builds a mailer from the smtp section. With no host every send fails
// with ErrDisabled.
func New(cfg *config.Config) *SMTPMailer {
	m := &SMTPMailer{
		host: cfg.SMTP.Host,
		addr: net.JoinHostPort(cfg.SMTP.Host, strconv.Itoa(cfg.SMTP.Port)),
		from: cfg.SMTP.From,
		send: smtp.SendMail,
		now:  time.Now,
	}
	if cfg.SMTP.Username != "" {
		m.auth = smtp.PlainAuth("", cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.Host)
	}
	return m
}

// SendEmail delivers one message. smtp.SendMail has no context, so ctx is
// only checked before dialing.
func (m *SMTPMailer) SendEmail(ctx context.Context, to, subject, body string) error {
	if m.host == "" {
		return ErrDisabled
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	to = strings.TrimSpace(to)
	if to == "" || strings.ContainsAny(to, "\r\n") {
		return fmt.Errorf("mailer: invalid recipient %q", to)
	}

	if err := m.send(m.addr, m.auth, m.from, []string{to}, m.compose(to, subject, body)); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", to, err)
	}
	return nil
}

func (m *SMTPMailer) compose(to, subject, body string) []byte {
	subject = strings.NewReplacer("\r", " ", "\n", " ").Replace(subject)

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", m.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}
