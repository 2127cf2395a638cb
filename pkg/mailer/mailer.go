package mailer

import (
	"context"
	"fmt"
	"html"

	"github.com/Eursukkul/rental-marketplace/pkg/logger"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

type Message struct {
	ToName  string
	ToEmail string
	Subject string
	Text    string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type SendgridMailer struct {
	client   *sendgrid.Client
	fromName string
	from     string
	sandbox  bool
}

func NewSendgridMailer(apiKey, from, fromName string, sandbox bool) *SendgridMailer {
	return &SendgridMailer{
		client:   sendgrid.NewSendClient(apiKey),
		from:     from,
		fromName: fromName,
		sandbox:  sandbox,
	}
}

func (m *SendgridMailer) Send(ctx context.Context, msg Message) error {
	from := mail.NewEmail(m.fromName, m.from)
	to := mail.NewEmail(msg.ToName, msg.ToEmail)

	email := mail.NewSingleEmail(from, msg.Subject, to, msg.Text, htmlBody(msg))
	if m.sandbox {
		ms := mail.NewMailSettings()
		ms.SetSandboxMode(mail.NewSetting(true))
		email.SetMailSettings(ms)
	}

	resp, err := m.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}

	logger.Log.WithFields(logrus.Fields{
		"to":      msg.ToEmail,
		"subject": msg.Subject,
	}).Info("Email sent")
	return nil
}

// htmlBody falls back to the escaped plain text when no HTML part is set.
func htmlBody(msg Message) string {
	if msg.HTML != "" {
		return msg.HTML
	}
	return "<p>" + html.EscapeString(msg.Text) + "</p>"
}

// LogMailer only logs; used when no SendGrid key is configured.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, msg Message) error {
	logger.Log.WithFields(logrus.Fields{
		"to":      msg.ToEmail,
		"subject": msg.Subject,
	}).Info("Email delivery disabled, skipping")
	return nil
}
