package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"testing"
	"time"

	"delivery-realtime/internal/general/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	var cfg config.Config
	cfg.SMTP.Host = "smtp.example.com"
	cfg.SMTP.Port = 587
	cfg.SMTP.From = "dispatch@example.com"
	return &cfg
}

func TestSendEmailComposesMessage(t *testing.T) {
	m := New(testConfig())
	m.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	var gotAddr string
	var gotTo []string
	var gotMsg string
	m.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	require.NoError(t, m.SendEmail(context.Background(), "ops@example.com", "Order O1\ncompleted", "line1\nline2"))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"ops@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Order O1 completed\r\n")
	assert.Contains(t, gotMsg, "\r\n\r\nline1\r\nline2")
}

func TestSendEmailErrors(t *testing.T) {
	var cfg config.Config
	assert.ErrorIs(t, New(&cfg).SendEmail(context.Background(), "a@b.c", "s", "b"), ErrDisabled)

	m := New(testConfig())
	m.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("421 busy") }
	err := m.SendEmail(context.Background(), "a@b.c", "s", "b")
	assert.ErrorContains(t, err, "421 busy")

	assert.Error(t, m.SendEmail(context.Background(), "a@b.c\r\nBcc: x@y.z", "s", "b"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.SendEmail(ctx, "a@b.c", "s", "b"), context.Canceled)
}
