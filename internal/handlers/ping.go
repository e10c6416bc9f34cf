package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ConversationCounter reports the number of stored conversations.
type ConversationCounter interface {
	Count(ctx context.Context) (int64, error)
}

// PingHandler serves /ping, HEAD /health and the storage-backed /api/health.
type PingHandler struct {
	counter ConversationCounter
	logger  *slog.Logger
}

// NewPingHandler creates a ping handler.
func NewPingHandler(log *slog.Logger, counter ConversationCounter) *PingHandler {
	return &PingHandler{
		counter: counter,
		logger:  log.With(slog.String("handler", "ping")),
	}
}

func (h *PingHandler) Register(e *echo.Echo) {
	e.GET("/ping", h.Ping)
	e.HEAD("/health", h.PingHead)
	e.GET("/api/health", h.Health)
}

// Ping returns 200 JSON {"ok":true}.
func (h *PingHandler) Ping(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"ok": true})
}

// PingHead returns 200 No Content for health checks.
func (h *PingHandler) PingHead(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

// Health checks storage by counting conversations.
func (h *PingHandler) Health(c echo.Context) error {
	n, err := h.counter.Count(c.Request().Context())
	if err != nil {
		h.logger.Error("health check failed", slog.Any("error", err))
		return internalError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"ok": true, "conversations": n})
}
