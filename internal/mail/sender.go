// Package mail delivers password reset links.  Delivery is best effort:
// callers log errors and never surface them to clients.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"golang.org/x/time/rate"

	"github.com/iliyamo/active-breaks/internal/metrics"
)

// Sender sends a reset link carrying the raw token to an address.
type Sender interface {
	SendPasswordReset(ctx context.Context, to, rawToken string) error
}

// ResetLink builds "{base}?token={raw}", keeping any query already on base.
func ResetLink(base, rawToken string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + "?token=" + url.QueryEscape(rawToken)
	}
	q := u.Query()
	q.Set("token", rawToken)
	u.RawQuery = q.Encode()
	return u.String()
}

// LogSender writes the reset link to the log instead of mailing it.  It is
// the fallback when SMTP is not configured.
type LogSender struct {
	ResetURL string
	Log      *slog.Logger
}

func (s LogSender) SendPasswordReset(_ context.Context, to, rawToken string) error {
	log := s.Log
	if log == nil {
		log = slog.Default()
	}
	log.Warn("mail.reset.smtp_not_configured", "to", to, "link", ResetLink(s.ResetURL, rawToken))
	metrics.ResetMails.WithLabelValues("log", "ok").Inc()
	return nil
}

// Throttled limits how fast the wrapped sender is called.  Callers wait for
// a slot until their context ends.
type Throttled struct {
	Next    Sender
	Limiter *rate.Limiter
}

// NewThrottled allows perMinute sends per minute with a burst of the same size.
func NewThrottled(next Sender, perMinute int) *Throttled {
	if perMinute <= 0 {
		perMinute = 60
	}
	return &Throttled{
		Next:    next,
		Limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
	}
}

func (t *Throttled) SendPasswordReset(ctx context.Context, to, rawToken string) error {
	if err := t.Limiter.Wait(ctx); err != nil {
		return fmt.Errorf("mail throttle: %w", err)
	}
	return t.Next.SendPasswordReset(ctx, to, rawToken)
}
