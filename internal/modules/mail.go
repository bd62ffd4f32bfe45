package modules

import (
	"context"

	"valuesgen-cli/internal/interfaces"
	"valuesgen-cli/internal/session"
)

// Mail providers. The empty provider disables outgoing mail.
const (
	mailNone   = ""
	mailResend = "resend"
	mailSMTP   = "smtp"
)

// ConfigureMail sets up outgoing mail.
func ConfigureMail(ctx context.Context, s *session.Session) error {
	provider, err := s.SetChoice(ctx, "mail.type", []string{mailNone, mailResend, mailSMTP}, s.Tree.String("mail.type", mailNone))
	if err != nil || provider == mailNone {
		return err
	}

	if err := setTexts(ctx, s, text("mail.defaultSender", "", interfaces.Required())); err != nil {
		return err
	}

	if provider == mailResend {
		return setTexts(ctx, s,
			text("mail.resend.apiKey", "", interfaces.Required(), interfaces.Sensitive()),
			text("mail.resend.apiUrl", "https://api.resend.com"),
		)
	}

	if err := setTexts(ctx, s, text("mail.smtp.server", "", interfaces.Required())); err != nil {
		return err
	}
	if _, err := s.SetInt(ctx, "mail.smtp.port", 587); err != nil {
		return err
	}
	if err := setTexts(ctx, s,
		text("mail.smtp.username", ""),
		text("mail.smtp.password", "", interfaces.Sensitive()),
	); err != nil {
		return err
	}
	_, err = s.SetYesNo(ctx, "mail.smtp.useTLS", s.Tree.Bool("mail.smtp.useTLS", true))
	return err
}
