package mail

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"e2e-transit/internal/config"
)

// sender is the part of *gomail.Dialer the mailer needs
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer delivers mail directly over SMTP
type SMTPMailer struct {
	sender sender
	from   string
}

// NewSMTPMailer creates an SMTP mailer from config
func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{
		sender: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
	}
}

// Send delivers a plain-text message
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}
