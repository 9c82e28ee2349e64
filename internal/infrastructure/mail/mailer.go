package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/nayeem-ahmad/ndc95/internal/config"
	gomail "github.com/wneessen/go-mail"
)

// Mailer delivers one message with an HTML body and a plain-text alternative.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}

type smtpMailer struct {
	client *gomail.Client
	from   string
}

// NewSMTPMailer builds a Mailer over the configured SMTP relay.
func NewSMTPMailer(cfg *config.Config) (Mailer, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.SMTPPort),
		gomail.WithTimeout(30 * time.Second),
	}

	if cfg.SMTPUsername != "" && cfg.SMTPPassword != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthLogin),
			gomail.WithUsername(cfg.SMTPUsername),
			gomail.WithPassword(cfg.SMTPPassword),
		)
	}

	if cfg.SMTPTLS {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	} else {
		// Local relays (MailHog, LocalStack SES) speak plain SMTP.
		opts = append(opts, gomail.WithTLSPolicy(gomail.NoTLS))
	}

	client, err := gomail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("create mail client: %w", err)
	}
	return &smtpMailer{client: client, from: cfg.SMTPFrom}, nil
}

func (m *smtpMailer) Send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("set from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, textBody)
	msg.AddAlternativeString(gomail.TypeTextHTML, htmlBody)

	return m.client.DialAndSendWithContext(ctx, msg)
}
