package service

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	mail "github.com/go-mail/mail/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/iliyamo/script-review-portal/internal/config"
	"github.com/iliyamo/script-review-portal/internal/model"
)

// Mailer sends plain-text mail.
type Mailer interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

// SMTPMailer delivers through the configured SMTP relay. With no host it
// logs and drops messages. After repeated delivery failures the breaker
// opens and Send fails fast until the relay recovers.
type SMTPMailer struct {
	from    string
	sender  mail.Sender
	dialer  *mail.Dialer
	breaker *gobreaker.CircuitBreaker
	log     *zap.Logger
}

// NewSMTPMailer builds a mailer from cfg.
func NewSMTPMailer(cfg config.MailConfig, log *zap.Logger) *SMTPMailer {
	m := &SMTPMailer{from: cfg.From, log: log}
	m.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "smtp",
		MaxRequests: 1,
		Interval:    5 * time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 3 },
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("mail: breaker state change", zap.String("name", name),
				zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	if cfg.Host != "" {
		d := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
		d.StartTLSPolicy = mail.MandatoryStartTLS
		d.TLSConfig = &tls.Config{ServerName: cfg.Host}
		m.dialer = d
	}
	return m
}

// WithSender replaces SMTP delivery.
func (m *SMTPMailer) WithSender(s mail.Sender) *SMTPMailer {
	m.sender = s
	return m
}

// Send composes and delivers one message.
func (m *SMTPMailer) Send(ctx context.Context, to []string, subject, body string) error {
	if len(to) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	var deliver func() error
	switch {
	case m.sender != nil:
		deliver = func() error { return mail.Send(m.sender, msg) }
	case m.dialer != nil:
		deliver = func() error { return m.dialer.DialAndSend(msg) }
	default:
		m.log.Debug("mail: smtp not configured, dropping message", zap.Strings("to", to), zap.String("subject", subject))
		return nil
	}
	_, err := m.breaker.Execute(func() (any, error) { return nil, deliver() })
	return err
}

func assignmentMail(j *model.Judge, s *model.Script) (string, string) {
	subject := fmt.Sprintf("New script assigned: %s", s.Title)
	body := fmt.Sprintf("Hello %s,\n\n%q by %s (%d pages, %s tier) has been assigned to you.\n"+
		"Sign in to the reviewer portal to start the rubric.\n", j.Name, s.Title, s.AuthorName, s.PageCount, s.TierName)
	return subject, body
}

func completionMail(s *model.Script, status model.ScriptStatus) (string, string) {
	subject := fmt.Sprintf("Review submitted: %s", s.Title)
	body := fmt.Sprintf("The review of %q by %s was submitted. The script is now %s.\n", s.Title, s.AuthorName, status)
	return subject, body
}

func welcomeMail(j *model.Judge) (string, string) {
	subject := "Your reviewer application was approved"
	body := fmt.Sprintf("Hello %s,\n\nYour application was approved. The administrator will send your sign-in details.\n", j.Name)
	return subject, body
}
