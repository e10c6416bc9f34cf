// Package mailgun sends email through the Mailgun API and verifies Mailgun inbound routes.
package mailgun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	mg "github.com/mailgun/mailgun-go/v5"

	"github.com/kurvcrm/kurv/internal/channel"
	"github.com/kurvcrm/kurv/internal/transport"
)

// Name is the origin tag of messages sent through this transport.
const Name = "mailgun"

var ErrNotConfigured = errors.New("mailgun: domain and api_key are required")

// Config holds the sending domain credentials.
type Config struct {
	Domain string
	APIKey string
	Region string
	// From defaults to noreply@<domain>.
	From string
}

// Sender is safe for concurrent use.
type Sender struct {
	client *mg.Client
	domain string
	from   string
	logger *slog.Logger
}

var _ transport.Sender = (*Sender)(nil)

func NewSender(log *slog.Logger, cfg Config) (*Sender, error) {
	domain := strings.TrimSpace(cfg.Domain)
	apiKey := strings.TrimSpace(cfg.APIKey)
	if domain == "" || apiKey == "" {
		return nil, ErrNotConfigured
	}
	client := mg.NewMailgun(apiKey)
	if strings.EqualFold(strings.TrimSpace(cfg.Region), "eu") {
		client.SetAPIBase(mg.APIBaseEU)
	}
	from := strings.TrimSpace(cfg.From)
	if from == "" {
		from = fmt.Sprintf("noreply@%s", domain)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sender{
		client: client,
		domain: domain,
		from:   from,
		logger: log.With(slog.String("transport", Name)),
	}, nil
}

func (s *Sender) Name() string          { return Name }
func (s *Sender) Channel() channel.Type { return channel.Email }

func (s *Sender) Send(ctx context.Context, msg transport.Message) (transport.Receipt, error) {
	m := mg.NewMessage(s.domain, s.from, msg.Subject, msg.Body, msg.To)
	resp, err := s.client.Send(ctx, m)
	if err != nil {
		s.logger.Warn("send failed", slog.Any("error", err))
		return transport.Receipt{}, &transport.Error{Transport: Name, Err: fmt.Errorf("mailgun send: %w", err)}
	}
	return transport.Receipt{ID: resp.ID, Status: "queued"}, nil
}
