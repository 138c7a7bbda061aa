package endpoint

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"os"
)

// SMTPConfig locates the relay generated handlers deliver through.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	// From is the envelope sender used when the form declares none.
	From string
}

// Addr returns the dial address for the relay.
func (c SMTPConfig) Addr() string {
	port := c.Port
	if port == "" {
		port = "25"
	}
	return c.Host + ":" + port
}

// SMTPConfigFromEnv reads the relay settings generated handlers use:
// FORMPOST_SMTP_HOST, FORMPOST_SMTP_PORT, FORMPOST_SMTP_USER,
// FORMPOST_SMTP_PASS, FORMPOST_SMTP_FROM.
func SMTPConfigFromEnv() SMTPConfig {
	return SMTPConfig{
		Host:     os.Getenv("FORMPOST_SMTP_HOST"),
		Port:     os.Getenv("FORMPOST_SMTP_PORT"),
		Username: os.Getenv("FORMPOST_SMTP_USER"),
		Password: os.Getenv("FORMPOST_SMTP_PASS"),
		From:     os.Getenv("FORMPOST_SMTP_FROM"),
	}
}

// SMTPSender delivers built messages over a plain SMTP relay.
type SMTPSender struct {
	cfg SMTPConfig
}

// NewSMTPSender wraps an SMTP relay behind the Sender interface.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send delivers the raw message. The envelope sender falls back to the
// relay's configured From, then to the first recipient.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if s.cfg.Host == "" {
		return errors.New("endpoint: smtp relay host is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	from := msg.From
	if from == "" {
		from = s.cfg.From
	}
	if from == "" && len(msg.To) > 0 {
		from = msg.To[0]
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if err := smtp.SendMail(s.cfg.Addr(), auth, from, msg.To, msg.Raw); err != nil {
		return fmt.Errorf("endpoint: smtp send: %w", err)
	}
	return nil
}
