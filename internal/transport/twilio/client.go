// Package twilio sends WhatsApp messages through the Twilio Messages REST API.
package twilio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	twiliosdk "github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/kurvcrm/kurv/internal/channel"
	"github.com/kurvcrm/kurv/internal/transport"
)

// Name is the origin tag of messages sent through this transport.
const Name = "twilio"

// StatusCallbackPath is where Twilio posts delivery status updates.
const StatusCallbackPath = "/api/twilio/status"

const defaultAPIHost = "api.twilio.com"

// Config holds the account credentials and sender number.
type Config struct {
	AccountSID string
	AuthToken  string
	// From is the sender, with or without the whatsapp: prefix.
	From string
	// APIBase redirects REST calls away from api.twilio.com, for local stubs.
	APIBase string
	// PublicBaseURL, when set, makes every send request a status callback to this service.
	PublicBaseURL string
}

// Client is safe for concurrent use.
type Client struct {
	cfg    Config
	rest   *twiliosdk.RestClient
	logger *slog.Logger
}

var _ transport.Sender = (*Client)(nil)

var ErrNotConfigured = errors.New("twilio: account_sid, auth_token and whatsapp_from are required")

// NewClient validates cfg. A nil httpClient gets a client with a 30s timeout.
func NewClient(log *slog.Logger, cfg Config, httpClient *http.Client) (*Client, error) {
	cfg.AccountSID = strings.TrimSpace(cfg.AccountSID)
	cfg.AuthToken = strings.TrimSpace(cfg.AuthToken)
	cfg.From = strings.TrimSpace(cfg.From)
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.From == "" {
		return nil, ErrNotConfigured
	}
	cfg.APIBase = strings.TrimRight(strings.TrimSpace(cfg.APIBase), "/")
	cfg.PublicBaseURL = strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.APIBase != "" {
		base, err := url.Parse(cfg.APIBase)
		if err != nil || base.Host == "" {
			return nil, fmt.Errorf("twilio: invalid api_base %q", cfg.APIBase)
		}
		redirected := *httpClient
		redirected.Transport = &apiBaseTransport{base: base, next: httpClient.Transport}
		httpClient = &redirected
	}
	if log == nil {
		log = slog.Default()
	}

	base := &twilioclient.Client{
		Credentials: twilioclient.NewCredentials(cfg.AccountSID, cfg.AuthToken),
		HTTPClient:  httpClient,
	}
	base.SetAccountSid(cfg.AccountSID)

	return &Client{
		cfg:    cfg,
		rest:   twiliosdk.NewRestClientWithParams(twiliosdk.ClientParams{Client: base}),
		logger: log.With(slog.String("transport", Name)),
	}, nil
}

func (c *Client) Name() string          { return Name }
func (c *Client) Channel() channel.Type { return channel.WhatsApp }

// Send posts the message. Both sender and recipient carry the whatsapp: prefix exactly once.
// The SDK call takes no context, so ctx is only checked before the request is made.
func (c *Client) Send(ctx context.Context, msg transport.Message) (transport.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return transport.Receipt{}, &transport.Error{Transport: Name, Err: err}
	}

	params := &openapi.CreateMessageParams{}
	params.SetPathAccountSid(c.cfg.AccountSID)
	params.SetFrom(channel.WhatsAppAddress(c.cfg.From))
	params.SetTo(channel.WhatsAppAddress(msg.To))
	params.SetBody(msg.Body)
	if c.cfg.PublicBaseURL != "" {
		params.SetStatusCallback(c.cfg.PublicBaseURL + StatusCallbackPath)
	}

	resp, err := c.rest.Api.CreateMessage(params)
	if err != nil {
		te := toTransportError(err)
		c.logger.Warn("send rejected",
			slog.Int("status", te.StatusCode),
			slog.String("code", te.Code),
			slog.String("message", te.Message),
		)
		return transport.Receipt{}, te
	}
	if resp == nil || resp.Sid == nil || *resp.Sid == "" {
		return transport.Receipt{}, &transport.Error{Transport: Name, Message: "response missing message sid"}
	}

	rec := transport.Receipt{ID: *resp.Sid}
	if resp.Status != nil {
		rec.Status = string(*resp.Status)
	}
	return rec, nil
}

func toTransportError(err error) *transport.Error {
	var restErr *twilioclient.TwilioRestError
	if errors.As(err, &restErr) {
		te := &transport.Error{Transport: Name, StatusCode: restErr.Status, Message: restErr.Message}
		if te.Message == "" {
			te.Message = "Twilio error"
		}
		if restErr.Code != 0 {
			te.Code = strconv.Itoa(restErr.Code)
		}
		return te
	}
	return &transport.Error{Transport: Name, Message: "Twilio error", Err: err}
}

// apiBaseTransport sends requests addressed to api.twilio.com to base instead.
type apiBaseTransport struct {
	base *url.URL
	next http.RoundTripper
}

func (t *apiBaseTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	if req.URL.Host != defaultAPIHost {
		return next.RoundTrip(req)
	}
	out := req.Clone(req.Context())
	out.URL.Scheme = t.base.Scheme
	out.URL.Host = t.base.Host
	out.URL.Path = strings.TrimRight(t.base.Path, "/") + req.URL.Path
	out.Host = ""
	return next.RoundTrip(out)
}
