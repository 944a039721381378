// Package mailer delivers transactional emails for the event board.
//
// The service layer depends on the small Sender interface, so tests and
// SMTP-less deployments can swap in a fake or the Noop sender without
// touching the auth flow.
package mailer

import (
	"context"
	"fmt"

	mail "github.com/wneessen/go-mail"

	"github.com/sakif/event-board/internal/config"
)

// Sender delivers a password-reset email carrying the raw token.
type Sender interface {
	SendPasswordReset(ctx context.Context, to, name, token string) error
}

// SMTPSender sends mail through a configured SMTP relay using go-mail.
type SMTPSender struct {
	cfg config.SMTP
}

// NewSMTPSender creates a sender for the given SMTP configuration.
func NewSMTPSender(cfg config.SMTP) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("mailer: SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("mailer: SMTP from address is required")
	}
	return &SMTPSender{cfg: cfg}, nil
}

// SendPasswordReset emails the raw reset token to the account owner. The
// token is only ever sent here and returned to development clients; it is
// never logged or persisted in clear.
func (s *SMTPSender) SendPasswordReset(ctx context.Context, to, name, token string) error {
	subject := "Reset your Event Board password"
	body := fmt.Sprintf(
		"Hi %s,\n\n"+
			"Someone requested a password reset for your Event Board account.\n"+
			"Use this token to choose a new password within the next hour:\n\n"+
			"    %s\n\n"+
			"If you did not request this, you can ignore this email.\n",
		name, token,
	)
	return s.send(ctx, to, subject, body)
}

func (s *SMTPSender) send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return fmt.Errorf("mailer: setting from address: %w", err)
		}
	} else if err := msg.From(s.cfg.From); err != nil {
		return fmt.Errorf("mailer: setting from address: %w", err)
	}

	if err := msg.To(to); err != nil {
		return fmt.Errorf("mailer: setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
	}
	// Port 465 means implicit TLS, everything else negotiates STARTTLS.
	if s.cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	}
	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("mailer: creating client: %w", err)
	}

	return client.DialAndSendWithContext(ctx, msg)
}

// Noop is a Sender that silently drops all mail. It stands in when no SMTP
// relay is configured, which is the normal state in development where the
// reset token is returned in the API response instead.
type Noop struct{}

func (Noop) SendPasswordReset(context.Context, string, string, string) error { return nil }
