package notifications

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/config"
)

// Mailer sends transactional email. Delivery is fire and forget: callers log
// failures but never propagate them.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type sendgridMailer struct {
	client *sendgrid.Client
	from   string
}

// NewSendgridMailer builds a Mailer backed by the SendGrid v3 API.
func NewSendgridMailer(cfg config.SendgridConfig) (Mailer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("sendgrid api key required")
	}
	if cfg.DefaultFrom == "" {
		return nil, fmt.Errorf("sendgrid from address required")
	}
	return &sendgridMailer{
		client: sendgrid.NewSendClient(cfg.APIKey),
		from:   cfg.DefaultFrom,
	}, nil
}

func (m *sendgridMailer) Send(ctx context.Context, to, subject, body string) error {
	message := mail.NewV3MailInit(
		mail.NewEmail("Luzimarket", m.from),
		subject,
		mail.NewEmail("", to),
		mail.NewContent("text/plain", body),
	)
	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}
	return nil
}

type noopMailer struct{}

// NewNoopMailer is used in environments without a SendGrid key.
func NewNoopMailer() Mailer {
	return noopMailer{}
}

func (noopMailer) Send(ctx context.Context, to, subject, body string) error {
	return nil
}
