package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kurvcrm/kurv/internal/channel"
	"github.com/kurvcrm/kurv/internal/outbound"
)

// Sender sends and replies through the outbound service.
type Sender interface {
	Send(ctx context.Context, in outbound.SendInput) (outbound.SendResult, error)
	Reply(ctx context.Context, conversationID, body string) (outbound.SendResult, error)
}

// SendHandler exposes outbound sends.
type SendHandler struct {
	sender Sender
	logger *slog.Logger
}

type SendWhatsAppRequest struct {
	To             string `json:"to" validate:"required"`
	Body           string `json:"body" validate:"required"`
	ConversationID string `json:"conversationId"`
}

type SendEmailRequest struct {
	To             string `json:"to" validate:"required,email"`
	Subject        string `json:"subject"`
	Body           string `json:"body" validate:"required"`
	ConversationID string `json:"conversationId"`
}

// SendResponse wraps the outbound result in the response envelope.
type SendResponse struct {
	OK bool `json:"ok"`
	outbound.SendResult
}

func NewSendHandler(log *slog.Logger, sender Sender) *SendHandler {
	return &SendHandler{
		sender: sender,
		logger: log.With(slog.String("handler", "send")),
	}
}

func (h *SendHandler) Register(e *echo.Echo) {
	group := e.Group("/api/send")
	group.POST("/whatsapp", h.WhatsApp)
	group.POST("/email", h.Email)
}

func (h *SendHandler) WhatsApp(c echo.Context) error {
	var req SendWhatsAppRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	return h.send(c, outbound.SendInput{
		Channel:        channel.WhatsApp,
		To:             req.To,
		Body:           req.Body,
		ConversationID: req.ConversationID,
	})
}

func (h *SendHandler) Email(c echo.Context) error {
	var req SendEmailRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	return h.send(c, outbound.SendInput{
		Channel:        channel.Email,
		To:             req.To,
		Subject:        req.Subject,
		Body:           req.Body,
		ConversationID: req.ConversationID,
	})
}

func (h *SendHandler) send(c echo.Context, in outbound.SendInput) error {
	res, err := h.sender.Send(c.Request().Context(), in)
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(http.StatusOK, SendResponse{OK: true, SendResult: res})
}
