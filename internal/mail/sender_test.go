package mail

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type countingSender struct{ n int }

func (c *countingSender) SendPasswordReset(context.Context, string, string) error {
	c.n++
	return nil
}

func TestResetLink(t *testing.T) {
	require.Equal(t, "http://localhost:5173/reset-password?token=abc-_123",
		ResetLink("http://localhost:5173/reset-password", "abc-_123"))
	require.Equal(t, "https://app.example.com/reset?lang=es&token=t",
		ResetLink("https://app.example.com/reset?lang=es", "t"))
}

func TestLogSenderWritesLink(t *testing.T) {
	var buf bytes.Buffer
	s := LogSender{ResetURL: "http://localhost/reset", Log: slog.New(slog.NewJSONHandler(&buf, nil))}
	require.NoError(t, s.SendPasswordReset(context.Background(), "ana@example.com", "tok"))
	require.Contains(t, buf.String(), "http://localhost/reset?token=tok")
	require.Contains(t, buf.String(), "mail.reset.smtp_not_configured")
}

func TestThrottledWaitsForSlot(t *testing.T) {
	next := &countingSender{}
	th := &Throttled{Next: next, Limiter: rate.NewLimiter(rate.Every(time.Hour), 1)}

	require.NoError(t, th.SendPasswordReset(context.Background(), "a@example.com", "t"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := th.SendPasswordReset(ctx, "a@example.com", "t")
	require.Error(t, err)
	require.Equal(t, 1, next.n)
}

func TestSMTPMessage(t *testing.T) {
	s := SMTPSender{Cfg: SMTPConfig{Host: "smtp.example.com", Port: 587, User: "mailer", Password: "pw", From: "no-reply@example.com", ResetURL: "http://x/reset"}}
	msg := string(s.message("ana@example.com", "http://x/reset?token=t"))
	require.True(t, strings.HasPrefix(msg, "From: no-reply@example.com\r\n"))
	require.Contains(t, msg, "To: ana@example.com\r\n")
	require.Contains(t, msg, "http://x/reset?token=t")
	require.True(t, s.Cfg.Configured())
	require.False(t, SMTPConfig{}.Configured())
}
