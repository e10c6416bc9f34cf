package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kurvcrm/kurv/internal/conversation"
	"github.com/kurvcrm/kurv/internal/outbound"
)

// ErrorResponse is the standard API error body.
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// TransportErrorResponse is returned with 502 when a provider rejected an outbound message.
type TransportErrorResponse struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error"`
	Status int    `json:"status,omitempty"`
	Code   string `json:"code,omitempty"`
}

// sendError maps outbound and lookup errors to responses.
func sendError(c echo.Context, err error) error {
	var te *outbound.TransportError
	switch {
	case errors.As(err, &te):
		return c.JSON(http.StatusBadGateway, TransportErrorResponse{
			Error:  te.Detail(),
			Status: te.StatusCode,
			Code:   te.Code,
		})
	case errors.Is(err, outbound.ErrInvalidInput), errors.Is(err, outbound.ErrNoDestination):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, conversation.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
	case errors.Is(err, outbound.ErrNoTransport):
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	default:
		return internalError(err)
	}
}

// internalError hides err from the caller; the server error handler logs it.
func internalError(err error) error {
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
}
