// Package conversation maps (contact, channel) pairs to the thread new messages are appended to.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/kurvcrm/kurv/internal/channel"
	dbpkg "github.com/kurvcrm/kurv/internal/db"
	"github.com/kurvcrm/kurv/internal/db/sqlc"
)

var (
	ErrNotFound     = errors.New("conversation not found")
	ErrInvalidInput = errors.New("conversation contact and channel are required")
)

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 50

const maxListLimit = 500

// Service manages conversation selection and activity state.
type Service struct {
	queries sqlc.Querier
	locker  dbpkg.KeyLocker
	logger  *slog.Logger
	now     func() time.Time
}

var (
	_ Reader = (*Service)(nil)
	_ Router = (*Service)(nil)
)

// NewService creates a conversation service. A nil locker disables per-pair serialization.
func NewService(log *slog.Logger, queries sqlc.Querier, locker dbpkg.KeyLocker) *Service {
	if log == nil {
		log = slog.Default()
	}
	if locker == nil {
		locker = dbpkg.NoopLocker{Queries: queries}
	}
	return &Service{
		queries: queries,
		locker:  locker,
		logger:  log.With(slog.String("service", "conversation")),
		now:     time.Now,
	}
}

// ResolveOrCreate returns the current conversation for (contactID, channel): the one with the
// latest activity, or the newest one when none has activity yet. When the pair has no
// conversation, an open one is created. subject is only stored on creation.
func (s *Service) ResolveOrCreate(ctx context.Context, contactID, channelName, subject string) (Resolution, error) {
	if s.queries == nil {
		return Resolution{}, fmt.Errorf("conversation queries not configured")
	}
	ch, err := channel.ParseType(channelName)
	if err != nil {
		return Resolution{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	pgContactID, err := dbpkg.ParseUUID(contactID)
	if err != nil {
		return Resolution{}, fmt.Errorf("%w: contact id: %v", ErrInvalidInput, err)
	}

	var res Resolution
	key := "conversation:" + dbpkg.UUIDString(pgContactID) + ":" + string(ch)
	err = s.locker.WithKeyLock(ctx, key, func(ctx context.Context, q sqlc.Querier) error {
		row, err := q.FindLatestConversation(ctx, sqlc.FindLatestConversationParams{
			ContactID: pgContactID,
			Channel:   string(ch),
		})
		if err == nil {
			res = Resolution{Conversation: toConversation(row)}
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("find conversation: %w", err)
		}
		row, err = q.CreateConversation(ctx, sqlc.CreateConversationParams{
			ContactID: pgContactID,
			Channel:   string(ch),
			Subject:   dbpkg.ToPgText(subject),
			Status:    channel.StatusOpen,
		})
		if err != nil {
			return fmt.Errorf("create conversation: %w", err)
		}
		res = Resolution{Conversation: toConversation(row), Created: true}
		s.logger.Info("conversation created",
			slog.String("conversation_id", res.Conversation.ID),
			slog.String("contact_id", res.Conversation.ContactID),
			slog.String("channel", string(ch)),
		)
		return nil
	})
	return res, err
}

// Touch records activity on a conversation and reopens it.
func (s *Service) Touch(ctx context.Context, conversationID string) error {
	if s.queries == nil {
		return fmt.Errorf("conversation queries not configured")
	}
	pgID, err := dbpkg.ParseUUID(conversationID)
	if err != nil {
		return ErrNotFound
	}
	n, err := s.queries.TouchConversation(ctx, sqlc.TouchConversationParams{
		LastMsgAt: pgtype.Timestamptz{Time: s.now().UTC(), Valid: true},
		ID:        pgID,
	})
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns a conversation by id. Malformed ids are reported as not found.
func (s *Service) Get(ctx context.Context, conversationID string) (Conversation, error) {
	if s.queries == nil {
		return Conversation{}, fmt.Errorf("conversation queries not configured")
	}
	pgID, err := dbpkg.ParseUUID(conversationID)
	if err != nil {
		return Conversation{}, ErrNotFound
	}
	row, err := s.queries.GetConversationByID(ctx, pgID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Conversation{}, ErrNotFound
		}
		return Conversation{}, fmt.Errorf("get conversation: %w", err)
	}
	return toConversation(row), nil
}

// List returns conversations ordered by latest activity.
func (s *Service) List(ctx context.Context, limit int) ([]Conversation, error) {
	if s.queries == nil {
		return nil, fmt.Errorf("conversation queries not configured")
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	rows, err := s.queries.ListConversations(ctx, int32(limit))
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	items := make([]Conversation, 0, len(rows))
	for _, row := range rows {
		items = append(items, toConversation(row))
	}
	return items, nil
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	if s.queries == nil {
		return 0, fmt.Errorf("conversation queries not configured")
	}
	n, err := s.queries.CountConversations(ctx)
	if err != nil {
		return 0, fmt.Errorf("count conversations: %w", err)
	}
	return n, nil
}

func toConversation(row sqlc.Conversation) Conversation {
	return Conversation{
		ID:        dbpkg.UUIDString(row.ID),
		ContactID: dbpkg.UUIDString(row.ContactID),
		Channel:   strings.TrimSpace(row.Channel),
		Subject:   dbpkg.TextToString(row.Subject),
		Status:    row.Status,
		LastMsgAt: dbpkg.TimePtrFromPg(row.LastMsgAt),
		CreatedAt: dbpkg.TimeFromPg(row.CreatedAt),
	}
}
