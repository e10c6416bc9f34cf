package modules

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.uber.org/fx"

	"github.com/kurvcrm/kurv/internal/boot"
	"github.com/kurvcrm/kurv/internal/config"
	"github.com/kurvcrm/kurv/internal/transport"
	"github.com/kurvcrm/kurv/internal/transport/mailgun"
	"github.com/kurvcrm/kurv/internal/transport/smtp"
	"github.com/kurvcrm/kurv/internal/transport/twilio"
)

var TransportModule = fx.Module(
	"transport",
	fx.Provide(
		provideTransport(provideWhatsAppTransport),
		provideTransport(provideEmailTransport),
		provideMailgunVerifier,
	),
)

// provideTransport adds the senders fn returns to the transports group. Unconfigured
// transports return none; sends on their channel fail with outbound.ErrNoTransport.
func provideTransport(fn any) any {
	return fx.Annotate(
		fn,
		fx.ResultTags(`group:"transports,flatten"`),
	)
}

func provideWhatsAppTransport(log *slog.Logger, rc *boot.RuntimeConfig) ([]transport.Sender, error) {
	client, err := twilio.NewClient(log, twilio.Config{
		AccountSID:    rc.Twilio.AccountSID,
		AuthToken:     rc.Twilio.AuthToken,
		From:          rc.Twilio.WhatsAppFrom,
		APIBase:       rc.Twilio.APIBase,
		PublicBaseURL: rc.Twilio.PublicBaseURL,
	}, nil)
	if errors.Is(err, twilio.ErrNotConfigured) {
		log.Warn("whatsapp transport disabled", slog.Any("error", err))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("twilio client: %w", err)
	}
	return []transport.Sender{client}, nil
}

func provideEmailTransport(log *slog.Logger, cfg config.Config) ([]transport.Sender, error) {
	var (
		sender transport.Sender
		err    error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Email.Transport)) {
	case config.EmailTransportSMTP:
		var s *smtp.Sender
		s, err = smtp.NewSender(log, smtp.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			Security: cfg.SMTP.Security,
			From:     cfg.Email.From,
		})
		if err == nil {
			sender = s
		}
		if errors.Is(err, smtp.ErrNotConfigured) {
			log.Warn("email transport disabled", slog.Any("error", err))
			return nil, nil
		}
	default:
		var s *mailgun.Sender
		s, err = mailgun.NewSender(log, mailgun.Config{
			Domain: cfg.Mailgun.Domain,
			APIKey: cfg.Mailgun.APIKey,
			Region: cfg.Mailgun.Region,
			From:   cfg.Email.From,
		})
		if err == nil {
			sender = s
		}
		if errors.Is(err, mailgun.ErrNotConfigured) {
			log.Warn("email transport disabled", slog.Any("error", err))
			return nil, nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("email transport: %w", err)
	}
	return []transport.Sender{sender}, nil
}

func provideMailgunVerifier(cfg config.Config) mailgun.Verifier {
	return mailgun.Verifier{SigningKey: cfg.Mailgun.WebhookSigningKey}
}
