package queue

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/oksasatya/go-ddd-storefront/pkg/mailer"
	mailtpl "github.com/oksasatya/go-ddd-storefront/pkg/mailer/templates"
)

type fakeSender struct {
	to, subject, text string
	err               error
}

func (f *fakeSender) Send(_ context.Context, to, subject, text, _ string) error {
	f.to, f.subject, f.text = to, subject, text
	return f.err
}

func codeJob() mailer.EmailJob {
	return mailer.EmailJob{
		To:       "ann@example.com",
		Template: mailtpl.VerificationCode,
		Data:     mailtpl.NewVerificationCodeData("Shop", "Ann", "482913", time.Now().Add(10*time.Minute)),
	}
}

func TestInlineNotifierRendersTemplate(t *testing.T) {
	s := &fakeSender{}
	n := NewInlineNotifier(s, time.Second)
	if err := n.Notify(context.Background(), codeJob()); err != nil {
		t.Fatal(err)
	}
	if s.to != "ann@example.com" || s.subject == "" || !strings.Contains(s.text, "482913") {
		t.Fatalf("sent %+v", s)
	}

	s.err = errors.New("provider down")
	if err := n.Notify(context.Background(), codeJob()); err == nil {
		t.Fatal("send error swallowed")
	}
}

func TestLogNotifierNeverLogsCodes(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	n := NewLogNotifier(logger)
	if err := n.Notify(context.Background(), codeJob()); err != nil {
		t.Fatal(err)
	}
	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("nothing logged")
	}
	line, _ := entry.String()
	if strings.Contains(line, "482913") {
		t.Fatalf("code leaked into log: %s", line)
	}
}
