package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/active-breaks/internal/metrics"
)

// SMTPConfig describes the outbound relay.  Port 587 with STARTTLS is the
// expected setup.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	ResetURL string
}

// Configured reports whether enough settings exist to send real mail.
func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.User != "" && c.Password != ""
}

// SMTPSender mails reset links through an authenticated STARTTLS relay.
type SMTPSender struct {
	Cfg SMTPConfig
}

func (s SMTPSender) SendPasswordReset(ctx context.Context, to, rawToken string) error {
	err := s.send(ctx, to, s.message(to, ResetLink(s.Cfg.ResetURL, rawToken)))
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.ResetMails.WithLabelValues("smtp", result).Inc()
	return err
}

func (s SMTPSender) message(to, link string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", s.Cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: Restablecer contrasena - Pausas Activas\r\n")
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Message-ID: <%s@%s>\r\n", uuid.NewString(), s.Cfg.Host)
	fmt.Fprintf(&b, "MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&b, "Recibimos una solicitud para restablecer tu contrasena.\r\n")
	fmt.Fprintf(&b, "Usa este enlace: %s\r\n", link)
	fmt.Fprintf(&b, "Si no solicitaste este cambio, ignora este mensaje.\r\n")
	return b.Bytes()
}

func (s SMTPSender) send(ctx context.Context, to string, msg []byte) error {
	addr := net.JoinHostPort(s.Cfg.Host, strconv.Itoa(s.Cfg.Port))
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	c, err := smtp.NewClient(conn, s.Cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp client: %w", err)
	}
	defer c.Close()

	if err := c.StartTLS(&tls.Config{ServerName: s.Cfg.Host}); err != nil {
		return fmt.Errorf("smtp starttls: %w", err)
	}
	if err := c.Auth(smtp.PlainAuth("", s.Cfg.User, s.Cfg.Password, s.Cfg.Host)); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := c.Mail(s.Cfg.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}
	return c.Quit()
}
