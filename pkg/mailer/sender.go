package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/oksasatya/go-ddd-storefront/config"
	mailtpl "github.com/oksasatya/go-ddd-storefront/pkg/mailer/templates"
)

// Sender delivers a single rendered email.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// NewSender picks the provider named by MAIL_PROVIDER.
func NewSender(cfg *config.Config) (Sender, error) {
	switch strings.ToLower(cfg.MailProvider) {
	case "", "mailgun":
		if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" {
			return nil, fmt.Errorf("mailgun not configured")
		}
		return NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailSender), nil
	case "postmark":
		if cfg.PostmarkServerToken == "" {
			return nil, fmt.Errorf("postmark not configured")
		}
		return NewPostmark(cfg.PostmarkServerToken, cfg.MailSender), nil
	case "sendgrid":
		if cfg.SendgridAPIKey == "" {
			return nil, fmt.Errorf("sendgrid not configured")
		}
		return NewSendgrid(cfg.SendgridAPIKey, cfg.AppName, cfg.MailSender), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.MailProvider)
	}
}

// Render resolves the job into subject, text and html bodies.
func (j EmailJob) Render() (subject, text, html string, err error) {
	if j.Template == "" {
		if j.Subject == "" {
			return "", "", "", fmt.Errorf("email job has neither template nor subject")
		}
		return j.Subject, j.Text, j.HTML, nil
	}
	return mailtpl.Render(j.Template, j.Data)
}

// Deliver renders the job and sends it with s.
func Deliver(ctx context.Context, s Sender, job EmailJob) error {
	if strings.TrimSpace(job.To) == "" {
		return fmt.Errorf("email job has no recipient")
	}
	subject, text, html, err := job.Render()
	if err != nil {
		return err
	}
	return s.Send(ctx, job.To, subject, text, html)
}
