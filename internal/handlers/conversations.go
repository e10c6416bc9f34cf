package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/kurvcrm/kurv/internal/contacts"
	"github.com/kurvcrm/kurv/internal/conversation"
	"github.com/kurvcrm/kurv/internal/message"
)

// ConversationStore is the read side of the conversation router.
type ConversationStore interface {
	Get(ctx context.Context, conversationID string) (conversation.Conversation, error)
	List(ctx context.Context, limit int) ([]conversation.Conversation, error)
}

// ContactReader loads contacts by id.
type ContactReader interface {
	GetByID(ctx context.Context, contactID string) (contacts.Contact, error)
}

// MessageReader lists a conversation's messages.
type MessageReader interface {
	ListByConversation(ctx context.Context, conversationID string) ([]message.Message, error)
}

// ConversationsHandler is the operator read API plus the reply action.
type ConversationsHandler struct {
	conversations ConversationStore
	contacts      ContactReader
	messages      MessageReader
	sender        Sender
	logger        *slog.Logger
}

type ReplyRequest struct {
	Body string `json:"body" form:"body" validate:"required"`
}

type ConversationDetail struct {
	OK           bool                      `json:"ok"`
	Conversation conversation.Conversation `json:"conversation"`
	Contact      *contacts.Contact         `json:"contact,omitempty"`
	Messages     []message.Message         `json:"messages"`
}

func NewConversationsHandler(log *slog.Logger, conversations ConversationStore, contactReader ContactReader, messages MessageReader, sender Sender) *ConversationsHandler {
	return &ConversationsHandler{
		conversations: conversations,
		contacts:      contactReader,
		messages:      messages,
		sender:        sender,
		logger:        log.With(slog.String("handler", "conversations")),
	}
}

func (h *ConversationsHandler) Register(e *echo.Echo) {
	group := e.Group("/api/conversations")
	group.GET("", h.List)
	group.GET("/:id", h.Get)
	group.POST("/:id/reply", h.Reply)
}

func (h *ConversationsHandler) List(c echo.Context) error {
	limit := 0
	if raw := strings.TrimSpace(c.QueryParam("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}
	items, err := h.conversations.List(c.Request().Context(), limit)
	if err != nil {
		return internalError(err)
	}
	if items == nil {
		items = []conversation.Conversation{}
	}
	return c.JSON(http.StatusOK, map[string]any{"ok": true, "items": items})
}

func (h *ConversationsHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	conv, err := h.conversations.Get(ctx, strings.TrimSpace(c.Param("id")))
	if err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
		}
		return internalError(err)
	}
	out := ConversationDetail{OK: true, Conversation: conv, Messages: []message.Message{}}

	contact, err := h.contacts.GetByID(ctx, conv.ContactID)
	switch {
	case err == nil:
		out.Contact = &contact
	case errors.Is(err, contacts.ErrNotFound):
		h.logger.Warn("conversation contact missing", slog.String("conversation_id", conv.ID))
	default:
		return internalError(err)
	}

	msgs, err := h.messages.ListByConversation(ctx, conv.ID)
	if err != nil {
		return internalError(err)
	}
	if msgs != nil {
		out.Messages = msgs
	}
	return c.JSON(http.StatusOK, out)
}

// Reply accepts {"body": ...} as JSON or form data.
func (h *ConversationsHandler) Reply(c echo.Context) error {
	var req ReplyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	res, err := h.sender.Reply(c.Request().Context(), strings.TrimSpace(c.Param("id")), req.Body)
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(http.StatusOK, SendResponse{OK: true, SendResult: res})
}
