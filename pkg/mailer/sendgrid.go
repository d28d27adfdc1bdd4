package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Sendgrid sends through the SendGrid v3 mail API.
type Sendgrid struct {
	client     *sendgrid.Client
	SenderName string
	Sender     string
}

func NewSendgrid(apiKey, senderName, sender string) *Sendgrid {
	return &Sendgrid{client: sendgrid.NewSendClient(apiKey), SenderName: senderName, Sender: sender}
}

func (s *Sendgrid) Send(ctx context.Context, to, subject, text, html string) error {
	from := mail.NewEmail(s.SenderName, s.Sender)
	msg := mail.NewSingleEmail(from, subject, mail.NewEmail("", to), text, html)
	res, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if res.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d", res.StatusCode)
	}
	return nil
}
