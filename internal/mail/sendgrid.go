package mail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer delivers transactional email.
type Mailer interface {
	Send(ctx context.Context, to, subject, plain, html string) error
}

// SendGrid sends mail through the SendGrid v3 API.
type SendGrid struct {
	client   *sendgrid.Client
	fromName string
	fromAddr string
}

func NewSendGrid(apiKey, fromName, fromAddr string) *SendGrid {
	return &SendGrid{
		client:   sendgrid.NewSendClient(apiKey),
		fromName: fromName,
		fromAddr: fromAddr,
	}
}

func (s *SendGrid) Send(ctx context.Context, to, subject, plain, html string) error {
	from := mail.NewEmail(s.fromName, s.fromAddr)
	msg := mail.NewSingleEmail(from, subject, mail.NewEmail("", to), plain, html)
	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// LogOnly writes mail to the log instead of sending it. Used in development
// when no SendGrid key is configured.
type LogOnly struct {
	Logger *slog.Logger
}

func (l LogOnly) Send(ctx context.Context, to, subject, plain, html string) error {
	l.Logger.Info("mail suppressed (no sendgrid key)", "to", to, "subject", subject, "body", plain)
	return nil
}
