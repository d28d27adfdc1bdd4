package mailer

import (
	"context"
	"fmt"

	"github.com/keighl/postmark"
)

// Postmark sends through the Postmark server API.
type Postmark struct {
	client *postmark.Client
	Sender string
}

func NewPostmark(serverToken, sender string) *Postmark {
	return &Postmark{client: postmark.NewClient(serverToken, ""), Sender: sender}
}

// Send ignores ctx; the postmark client has no context support.
func (p *Postmark) Send(_ context.Context, to, subject, text, html string) error {
	res, err := p.client.SendEmail(postmark.Email{
		From:     p.Sender,
		To:       to,
		Subject:  subject,
		TextBody: text,
		HtmlBody: html,
	})
	if err != nil {
		return fmt.Errorf("postmark send: %w", err)
	}
	if res.ErrorCode != 0 {
		return fmt.Errorf("postmark send: %d %s", res.ErrorCode, res.Message)
	}
	return nil
}
