package mailer

import (
	"errors"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
)

// ErrDisabled is returned when no SMTP host is configured.
var ErrDisabled = errors.New("mailer is not configured")

// Config holds SMTP settings
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer sends HTML mail over SMTP. Callers treat failures as soft: log and
// move on, never fail the operation that triggered the mail.
type Mailer struct {
	cfg  Config
	addr string
	auth smtp.Auth
}

// New creates a mailer from config. A mailer with an empty host is valid but
// disabled.
func New(cfg Config) *Mailer {
	m := &Mailer{
		cfg:  cfg,
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
	}
	if cfg.Username != "" {
		m.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return m
}

// Enabled reports whether SMTP is configured
func (m *Mailer) Enabled() bool {
	return m.cfg.Host != ""
}

// Send sends an HTML email, optionally attaching files by path
func (m *Mailer) Send(to, subject, htmlBody string, attachments ...string) error {
	if !m.Enabled() {
		return ErrDisabled
	}

	e := email.NewEmail()
	e.From = m.cfg.From
	e.To = []string{to}
	e.Subject = subject
	e.HTML = []byte(htmlBody)

	for _, path := range attachments {
		if _, err := e.AttachFile(path); err != nil {
			return fmt.Errorf("attach %s: %w", path, err)
		}
	}

	return e.Send(m.addr, m.auth)
}
