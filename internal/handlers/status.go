package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kurvcrm/kurv/internal/delivery"
)

// TwilioSignatureHeader carries Twilio's request signature.
const TwilioSignatureHeader = "X-Twilio-Signature"

// StatusProcessor applies delivery-status callbacks.
type StatusProcessor interface {
	Process(ctx context.Context, cb delivery.Callback) (delivery.ApplyResult, error)
}

// StatusHandler receives Twilio message status callbacks.
type StatusHandler struct {
	reconciler StatusProcessor
	logger     *slog.Logger
}

func NewStatusHandler(log *slog.Logger, reconciler StatusProcessor) *StatusHandler {
	return &StatusHandler{
		reconciler: reconciler,
		logger:     log.With(slog.String("handler", "status")),
	}
}

func (h *StatusHandler) Register(e *echo.Echo) {
	e.POST("/api/twilio/status", h.Callback)
}

func (h *StatusHandler) Callback(c echo.Context) error {
	params, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form body")
	}
	res, err := h.reconciler.Process(c.Request().Context(), delivery.Callback{
		Params:    params,
		Signature: c.Request().Header.Get(TwilioSignatureHeader),
	})
	switch {
	case err == nil:
	case errors.Is(err, delivery.ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, delivery.ErrInvalidSignature):
		return echo.NewHTTPError(http.StatusForbidden, "invalid signature")
	default:
		return internalError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"ok": true, "matched": res.Matched})
}
