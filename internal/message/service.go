// Package message provides message persistence for conversation threads.
package message

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/kurvcrm/kurv/internal/channel"
	dbpkg "github.com/kurvcrm/kurv/internal/db"
	"github.com/kurvcrm/kurv/internal/db/sqlc"
)

var (
	// ErrDuplicate is returned when a message with the same provider id,
	// channel and direction is already stored.
	ErrDuplicate    = errors.New("message already stored")
	ErrInvalidInput = errors.New("invalid message input")
)

// Service persists and reads conversation messages.
type Service struct {
	queries sqlc.Querier
	logger  *slog.Logger
}

// NewService creates a message service.
func NewService(log *slog.Logger, queries sqlc.Querier) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		queries: queries,
		logger:  log.With(slog.String("service", "message")),
	}
}

// Append inserts a message. An empty body is replaced by the channel placeholder.
func (s *Service) Append(ctx context.Context, input AppendInput) (Message, error) {
	if s.queries == nil {
		return Message{}, fmt.Errorf("message queries not configured")
	}
	pgConversationID, err := dbpkg.ParseUUID(input.ConversationID)
	if err != nil {
		return Message{}, fmt.Errorf("%w: conversation id: %v", ErrInvalidInput, err)
	}
	ch := input.Channel
	if input.Meta != nil {
		if ch == "" {
			ch = input.Meta.Channel()
		} else if ch != input.Meta.Channel() {
			return Message{}, fmt.Errorf("%w: %s metadata on %s message", ErrInvalidInput, input.Meta.Channel(), ch)
		}
	}
	if _, err := channel.ParseType(string(ch)); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if input.Direction != channel.Inbound && input.Direction != channel.Outbound {
		return Message{}, fmt.Errorf("%w: direction %q", ErrInvalidInput, input.Direction)
	}
	origin := strings.TrimSpace(input.Origin)
	if origin == "" {
		return Message{}, fmt.Errorf("%w: origin is required", ErrInvalidInput)
	}
	body := input.Body
	if strings.TrimSpace(body) == "" {
		body = ch.Placeholder()
	}
	meta, err := channel.EncodeMeta(input.Meta)
	if err != nil {
		return Message{}, err
	}
	var externalID pgtype.Text
	if input.Meta != nil {
		externalID = dbpkg.ToPgText(input.Meta.ExternalID())
	}

	row, err := s.queries.CreateMessage(ctx, sqlc.CreateMessageParams{
		ConversationID: pgConversationID,
		Channel:        string(ch),
		Direction:      string(input.Direction),
		Source:         origin,
		Body:           body,
		ChannelMeta:    meta,
		ExternalID:     externalID,
	})
	if err != nil {
		if dbpkg.IsUniqueViolation(err) {
			return Message{}, ErrDuplicate
		}
		return Message{}, fmt.Errorf("insert message: %w", err)
	}
	msg, err := toMessage(row)
	if err != nil {
		return Message{}, err
	}
	s.logger.Debug("message stored",
		slog.String("message_id", msg.ID),
		slog.String("conversation_id", msg.ConversationID),
		slog.String("direction", msg.Direction),
	)
	return msg, nil
}

// ListByConversation returns a conversation's messages in insertion order.
func (s *Service) ListByConversation(ctx context.Context, conversationID string) ([]Message, error) {
	if s.queries == nil {
		return nil, fmt.Errorf("message queries not configured")
	}
	pgID, err := dbpkg.ParseUUID(conversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: conversation id: %v", ErrInvalidInput, err)
	}
	rows, err := s.queries.ListMessagesByConversation(ctx, pgID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	items := make([]Message, 0, len(rows))
	for _, row := range rows {
		msg, err := toMessage(row)
		if err != nil {
			s.logger.Warn("skip message with unreadable metadata", slog.String("message_id", dbpkg.UUIDString(row.ID)), slog.Any("error", err))
			continue
		}
		items = append(items, msg)
	}
	return items, nil
}

func (s *Service) CountByConversation(ctx context.Context, conversationID string) (int64, error) {
	if s.queries == nil {
		return 0, fmt.Errorf("message queries not configured")
	}
	pgID, err := dbpkg.ParseUUID(conversationID)
	if err != nil {
		return 0, fmt.Errorf("%w: conversation id: %v", ErrInvalidInput, err)
	}
	n, err := s.queries.CountMessagesByConversation(ctx, pgID)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

func toMessage(row sqlc.Message) (Message, error) {
	meta, err := channel.DecodeMeta(row.ChannelMeta)
	if err != nil {
		return Message{}, err
	}
	msg := Message{
		ID:             dbpkg.UUIDString(row.ID),
		ConversationID: dbpkg.UUIDString(row.ConversationID),
		Channel:        row.Channel,
		Direction:      row.Direction,
		Origin:         row.Source,
		Body:           row.Body,
		Meta:           meta,
		ExternalID:     dbpkg.TextToString(row.ExternalID),
		CreatedAt:      dbpkg.TimeFromPg(row.CreatedAt),
	}
	if row.DeliveryStatus.Valid {
		msg.Delivery = &Delivery{
			Status:       row.DeliveryStatus.String,
			At:           dbpkg.TimePtrFromPg(row.DeliveryAt),
			ErrorCode:    dbpkg.TextToString(row.DeliveryErrorCode),
			ErrorMessage: dbpkg.TextToString(row.DeliveryErrorMessage),
		}
	}
	return msg, nil
}
