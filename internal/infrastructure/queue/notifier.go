package queue

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-storefront/pkg/helpers"
	"github.com/oksasatya/go-ddd-storefront/pkg/mailer"
)

const publishTimeout = 5 * time.Second

// RabbitNotifier hands email jobs to the email worker through RabbitMQ.
type RabbitNotifier struct {
	Publisher *helpers.RabbitPublisher
}

func NewRabbitNotifier(p *helpers.RabbitPublisher) *RabbitNotifier {
	return &RabbitNotifier{Publisher: p}
}

func (n *RabbitNotifier) Notify(ctx context.Context, job mailer.EmailJob) error {
	c, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return n.Publisher.PublishJSON(c, job)
}

// InlineNotifier renders and sends in the request path. Used when no broker is configured.
type InlineNotifier struct {
	Sender  mailer.Sender
	Timeout time.Duration
}

func NewInlineNotifier(s mailer.Sender, timeout time.Duration) *InlineNotifier {
	return &InlineNotifier{Sender: s, Timeout: timeout}
}

func (n *InlineNotifier) Notify(ctx context.Context, job mailer.EmailJob) error {
	if n.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.Timeout)
		defer cancel()
	}
	return mailer.Deliver(ctx, n.Sender, job)
}

// LogNotifier drops email jobs, logging only who would have received what.
// Template data is never logged since it carries one-time codes.
type LogNotifier struct {
	Logger *logrus.Logger
}

func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{Logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, job mailer.EmailJob) error {
	helpers.LogInfo(n.Logger, "email sending disabled, job dropped", logrus.Fields{
		"to":       job.To,
		"template": job.Template,
	})
	return nil
}
