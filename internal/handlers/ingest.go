package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/kurvcrm/kurv/internal/ingest"
	"github.com/kurvcrm/kurv/internal/transport/mailgun"
)

// IngestSecretHeader carries the shared ingest secret.
const IngestSecretHeader = "X-Ingest-Secret"

// Ingester runs the inbound pipeline.
type Ingester interface {
	Ingest(ctx context.Context, ev ingest.Event) (ingest.Result, error)
}

// IngestHandler receives inbound webhooks for every channel.
type IngestHandler struct {
	pipeline Ingester
	secret   string
	mailgun  mailgun.Verifier
	logger   *slog.Logger
}

// IngestResponse is returned for accepted and deduplicated events.
type IngestResponse struct {
	OK             bool   `json:"ok"`
	Dedup          bool   `json:"dedup,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
	MessageID      string `json:"messageId,omitempty"`
}

// NewIngestHandler creates the ingest handler. An empty secret disables the header check.
func NewIngestHandler(log *slog.Logger, pipeline Ingester, secret string, verifier mailgun.Verifier) *IngestHandler {
	return &IngestHandler{
		pipeline: pipeline,
		secret:   strings.TrimSpace(secret),
		mailgun:  verifier,
		logger:   log.With(slog.String("handler", "ingest")),
	}
}

func (h *IngestHandler) Register(e *echo.Echo) {
	group := e.Group("/api/ingest", h.requireSecret)
	group.POST("/whatsapp", h.WhatsApp)
	group.GET("/whatsapp", h.MethodNotAllowed)
	group.POST("/voice", h.Voice)
	group.GET("/voice", h.RouteCheck("voice"))
	group.POST("/email", h.Email)
	group.GET("/email", h.RouteCheck("email"))
	// Mailgun cannot send custom headers; route posts are authenticated by their HMAC signature.
	e.POST("/api/ingest/email/mailgun", h.Mailgun)
}

func (h *IngestHandler) requireSecret(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.secret == "" {
			return next(c)
		}
		got := c.Request().Header.Get(IngestSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}
		return next(c)
	}
}

// RouteCheck answers GET on a route so operators can check the webhook URL.
func (h *IngestHandler) RouteCheck(route string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{"ok": true, "route": route})
	}
}

func (h *IngestHandler) MethodNotAllowed(c echo.Context) error {
	return echo.NewHTTPError(http.StatusMethodNotAllowed, "method not allowed")
}

// WhatsApp handles Twilio's form-encoded inbound message webhook.
func (h *IngestHandler) WhatsApp(c echo.Context) error {
	var form ingest.WhatsAppForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form body")
	}
	params, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form body")
	}
	return h.run(c, form.Event(flatten(params)))
}

// Voice handles call summaries.
func (h *IngestHandler) Voice(c echo.Context) error {
	var payload ingest.VoicePayload
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json body")
	}
	ev := payload.Event()
	ev.Payload = payload
	return h.run(c, ev)
}

// Email handles email imports.
func (h *IngestHandler) Email(c echo.Context) error {
	var payload ingest.EmailPayload
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json body")
	}
	ev := payload.Event()
	ev.Payload = payload
	return h.run(c, ev)
}

// Mailgun handles a signed Mailgun inbound route post.
func (h *IngestHandler) Mailgun(c echo.Context) error {
	params, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form body")
	}
	in, err := h.mailgun.ParseInbound(params)
	if err != nil {
		if errors.Is(err, mailgun.ErrInvalidSignature) || errors.Is(err, mailgun.ErrStaleTimestamp) {
			h.logger.Warn("mailgun route post rejected", slog.Any("error", err))
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid signature")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ev := ingest.EmailEvent(ingest.SourceMailgun, in.MessageID, in.Sender, in.Recipient, in.Subject, in.BodyPlain)
	ev.Payload = map[string]string{
		"Message-Id": in.MessageID,
		"sender":     in.Sender,
		"recipient":  in.Recipient,
		"subject":    in.Subject,
	}
	return h.run(c, ev)
}

func (h *IngestHandler) run(c echo.Context, ev ingest.Event) error {
	res, err := h.pipeline.Ingest(c.Request().Context(), ev)
	if err != nil {
		if errors.Is(err, ingest.ErrInvalidInput) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		h.logger.Error("ingest failed",
			slog.String("channel", string(ev.Channel)),
			slog.String("event_id", ev.EventID),
			slog.Any("error", err),
		)
		return internalError(err)
	}
	return c.JSON(http.StatusOK, IngestResponse{
		OK:             true,
		Dedup:          res.Dedup,
		ConversationID: res.ConversationID,
		MessageID:      res.MessageID,
	})
}

func flatten(params url.Values) map[string]string {
	out := make(map[string]string, len(params))
	for k, v := range params {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
