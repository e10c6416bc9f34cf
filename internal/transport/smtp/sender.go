// Package smtp sends email over SMTP submission.
package smtp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	mail "github.com/wneessen/go-mail"

	"github.com/kurvcrm/kurv/internal/channel"
	"github.com/kurvcrm/kurv/internal/transport"
)

// Name is the origin tag of messages sent through this transport.
const Name = "smtp"

var ErrNotConfigured = errors.New("smtp: host and from address are required")

// Config holds the submission server settings. Security is tls, starttls or none.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	Security string
	From     string
}

type Sender struct {
	cfg    Config
	logger *slog.Logger
}

var _ transport.Sender = (*Sender)(nil)

func NewSender(log *slog.Logger, cfg Config) (*Sender, error) {
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.From = strings.TrimSpace(cfg.From)
	if cfg.From == "" {
		cfg.From = strings.TrimSpace(cfg.Username)
	}
	if cfg.Host == "" || cfg.From == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	cfg.Security = strings.ToLower(strings.TrimSpace(cfg.Security))
	if log == nil {
		log = slog.Default()
	}
	return &Sender{cfg: cfg, logger: log.With(slog.String("transport", Name))}, nil
}

func (s *Sender) Name() string          { return Name }
func (s *Sender) Channel() channel.Type { return channel.Email }

// Send returns the generated Message-ID as the receipt id.
func (s *Sender) Send(ctx context.Context, msg transport.Message) (transport.Receipt, error) {
	m, err := s.buildMessage(msg)
	if err != nil {
		return transport.Receipt{}, &transport.Error{Transport: Name, Err: err}
	}
	client, err := mail.NewClient(s.cfg.Host, s.clientOptions()...)
	if err != nil {
		return transport.Receipt{}, &transport.Error{Transport: Name, Err: fmt.Errorf("create smtp client: %w", err)}
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		s.logger.Warn("send failed", slog.String("host", s.cfg.Host), slog.Any("error", err))
		return transport.Receipt{}, &transport.Error{Transport: Name, Err: fmt.Errorf("send email: %w", err)}
	}
	return transport.Receipt{ID: m.GetMessageID(), Status: "sent"}, nil
}

func (s *Sender) buildMessage(msg transport.Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("set from: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("set to: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	m.SetMessageID()
	return m, nil
}

func (s *Sender) clientOptions() []mail.Option {
	opts := []mail.Option{mail.WithPort(s.cfg.Port)}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	switch s.cfg.Security {
	case "tls":
		opts = append(opts, mail.WithSSLPort(false), mail.WithTLSPolicy(mail.TLSMandatory))
	case "starttls":
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	return opts
}
