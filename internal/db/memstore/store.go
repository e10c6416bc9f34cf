// Package memstore is an in-process implementation of the generated query interface.
// It backs the "memory" storage driver and the service tests, and mirrors the
// PostgreSQL schema's ordering and uniqueness rules.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/kurvcrm/kurv/internal/db/sqlc"
)

// Store holds all rows in memory. The zero value is not usable; call New.
type Store struct {
	mu            sync.RWMutex
	now           func() time.Time
	last          time.Time
	seq           int64
	contacts      []contactRow
	conversations []conversationRow
	messages      []messageRow
	events        []eventRow
	failures      map[string]error
}

type contactRow struct {
	seq int64
	sqlc.Contact
}

type conversationRow struct {
	seq int64
	sqlc.Conversation
}

type messageRow struct {
	seq int64
	sqlc.Message
}

type eventRow struct {
	seq int64
	sqlc.SourceEvent
}

var _ sqlc.Querier = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for created_at columns.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		now:      time.Now,
		failures: map[string]error{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FailOn makes the named query return err until it is cleared with a nil err.
func (s *Store) FailOn(query string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, query)
		return
	}
	s.failures[query] = err
}

// SourceEvents returns a copy of the ledger and audit rows in insertion order.
func (s *Store) SourceEvents() []sqlc.SourceEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]sqlc.SourceEvent, 0, len(s.events))
	for _, row := range s.events {
		out = append(out, cloneEvent(row.SourceEvent))
	}
	return out
}

// Messages returns a copy of every stored message in insertion order.
func (s *Store) Messages() []sqlc.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]sqlc.Message, 0, len(s.messages))
	for _, row := range s.messages {
		out = append(out, cloneMessage(row.Message))
	}
	return out
}

// Contacts returns a copy of every stored contact in insertion order.
func (s *Store) Contacts() []sqlc.Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]sqlc.Contact, 0, len(s.contacts))
	for _, row := range s.contacts {
		out = append(out, cloneContact(row.Contact))
	}
	return out
}

func (s *Store) failure(query string) error {
	return s.failures[query]
}

// tick returns a strictly increasing timestamp with PostgreSQL's microsecond precision.
func (s *Store) tick() pgtype.Timestamptz {
	t := s.now().UTC().Truncate(time.Microsecond)
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	s.seq++
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func newID() pgtype.UUID {
	return pgtype.UUID{Bytes: uuid.New(), Valid: true}
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{
		Severity:       "ERROR",
		Code:           "23505",
		Message:        "duplicate key value violates unique constraint \"" + constraint + "\"",
		ConstraintName: constraint,
	}
}

func foreignKeyViolation(constraint string) error {
	return &pgconn.PgError{
		Severity:       "ERROR",
		Code:           "23503",
		Message:        "insert or update violates foreign key constraint \"" + constraint + "\"",
		ConstraintName: constraint,
	}
}

// Contacts

func (s *Store) CreateContact(_ context.Context, arg sqlc.CreateContactParams) (sqlc.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("CreateContact"); err != nil {
		return sqlc.Contact{}, err
	}
	c := sqlc.Contact{
		ID:        newID(),
		Phones:    cloneStrings(arg.Phones),
		Emails:    cloneStrings(arg.Emails),
		Whatsapp:  arg.Whatsapp,
		Name:      arg.Name,
		CreatedAt: s.tick(),
	}
	s.contacts = append(s.contacts, contactRow{seq: s.seq, Contact: c})
	return cloneContact(c), nil
}

func (s *Store) FindContactByPhone(_ context.Context, phone string) (sqlc.Contact, error) {
	return s.findContact("FindContactByPhone", func(c sqlc.Contact) []string { return c.Phones }, phone)
}

func (s *Store) FindContactByEmail(_ context.Context, email string) (sqlc.Contact, error) {
	return s.findContact("FindContactByEmail", func(c sqlc.Contact) []string { return c.Emails }, email)
}

func (s *Store) findContact(query string, field func(sqlc.Contact) []string, value string) (sqlc.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure(query); err != nil {
		return sqlc.Contact{}, err
	}
	// Rows are appended in created_at order, so the first match is the oldest.
	for _, row := range s.contacts {
		for _, v := range field(row.Contact) {
			if v == value {
				return cloneContact(row.Contact), nil
			}
		}
	}
	return sqlc.Contact{}, pgx.ErrNoRows
}

func (s *Store) GetContactByID(_ context.Context, id pgtype.UUID) (sqlc.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("GetContactByID"); err != nil {
		return sqlc.Contact{}, err
	}
	for _, row := range s.contacts {
		if row.ID == id {
			return cloneContact(row.Contact), nil
		}
	}
	return sqlc.Contact{}, pgx.ErrNoRows
}

// Conversations

func (s *Store) CreateConversation(_ context.Context, arg sqlc.CreateConversationParams) (sqlc.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("CreateConversation"); err != nil {
		return sqlc.Conversation{}, err
	}
	if !s.hasContact(arg.ContactID) {
		return sqlc.Conversation{}, foreignKeyViolation("conversations_contact_id_fkey")
	}
	c := sqlc.Conversation{
		ID:        newID(),
		ContactID: arg.ContactID,
		Channel:   arg.Channel,
		Subject:   arg.Subject,
		Status:    arg.Status,
		CreatedAt: s.tick(),
	}
	s.conversations = append(s.conversations, conversationRow{seq: s.seq, Conversation: c})
	return c, nil
}

func (s *Store) FindLatestConversation(_ context.Context, arg sqlc.FindLatestConversationParams) (sqlc.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("FindLatestConversation"); err != nil {
		return sqlc.Conversation{}, err
	}
	var matches []conversationRow
	for _, row := range s.conversations {
		if row.ContactID == arg.ContactID && row.Channel == arg.Channel {
			matches = append(matches, row)
		}
	}
	if len(matches) == 0 {
		return sqlc.Conversation{}, pgx.ErrNoRows
	}
	sortConversations(matches)
	return matches[0].Conversation, nil
}

func (s *Store) GetConversationByID(_ context.Context, id pgtype.UUID) (sqlc.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("GetConversationByID"); err != nil {
		return sqlc.Conversation{}, err
	}
	for _, row := range s.conversations {
		if row.ID == id {
			return row.Conversation, nil
		}
	}
	return sqlc.Conversation{}, pgx.ErrNoRows
}

func (s *Store) TouchConversation(_ context.Context, arg sqlc.TouchConversationParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("TouchConversation"); err != nil {
		return 0, err
	}
	for i := range s.conversations {
		if s.conversations[i].ID == arg.ID {
			s.conversations[i].LastMsgAt = arg.LastMsgAt
			s.conversations[i].Status = "open"
			return 1, nil
		}
	}
	return 0, nil
}

func (s *Store) ListConversations(_ context.Context, maxCount int32) ([]sqlc.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("ListConversations"); err != nil {
		return nil, err
	}
	rows := append([]conversationRow(nil), s.conversations...)
	sortConversations(rows)
	if maxCount >= 0 && int(maxCount) < len(rows) {
		rows = rows[:maxCount]
	}
	out := make([]sqlc.Conversation, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Conversation)
	}
	return out, nil
}

func (s *Store) CountConversations(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("CountConversations"); err != nil {
		return 0, err
	}
	return int64(len(s.conversations)), nil
}

// sortConversations orders by last_msg_at DESC NULLS LAST, created_at DESC.
func sortConversations(rows []conversationRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.LastMsgAt.Valid != b.LastMsgAt.Valid {
			return a.LastMsgAt.Valid
		}
		if a.LastMsgAt.Valid && !a.LastMsgAt.Time.Equal(b.LastMsgAt.Time) {
			return a.LastMsgAt.Time.After(b.LastMsgAt.Time)
		}
		if !a.CreatedAt.Time.Equal(b.CreatedAt.Time) {
			return a.CreatedAt.Time.After(b.CreatedAt.Time)
		}
		return a.seq > b.seq
	})
}

func (s *Store) hasContact(id pgtype.UUID) bool {
	for _, row := range s.contacts {
		if row.ID == id {
			return true
		}
	}
	return false
}

func (s *Store) hasConversation(id pgtype.UUID) bool {
	for _, row := range s.conversations {
		if row.ID == id {
			return true
		}
	}
	return false
}

// Messages

func (s *Store) CreateMessage(_ context.Context, arg sqlc.CreateMessageParams) (sqlc.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("CreateMessage"); err != nil {
		return sqlc.Message{}, err
	}
	if !s.hasConversation(arg.ConversationID) {
		return sqlc.Message{}, foreignKeyViolation("messages_conversation_id_fkey")
	}
	if arg.ExternalID.Valid {
		for _, row := range s.messages {
			if row.ExternalID.Valid &&
				row.ExternalID.String == arg.ExternalID.String &&
				row.Channel == arg.Channel &&
				row.Direction == arg.Direction {
				return sqlc.Message{}, uniqueViolation("messages_external_id_uniq")
			}
		}
	}
	meta := arg.ChannelMeta
	if len(meta) == 0 {
		meta = []byte("{}")
	}
	m := sqlc.Message{
		ID:             newID(),
		ConversationID: arg.ConversationID,
		Channel:        arg.Channel,
		Direction:      arg.Direction,
		Source:         arg.Source,
		Body:           arg.Body,
		ChannelMeta:    append([]byte(nil), meta...),
		ExternalID:     arg.ExternalID,
		CreatedAt:      s.tick(),
	}
	s.messages = append(s.messages, messageRow{seq: s.seq, Message: m})
	return cloneMessage(m), nil
}

func (s *Store) ListMessagesByConversation(_ context.Context, conversationID pgtype.UUID) ([]sqlc.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("ListMessagesByConversation"); err != nil {
		return nil, err
	}
	var rows []messageRow
	for _, row := range s.messages {
		if row.ConversationID == conversationID {
			rows = append(rows, row)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Time.Equal(rows[j].CreatedAt.Time) {
			return rows[i].CreatedAt.Time.Before(rows[j].CreatedAt.Time)
		}
		return rows[i].seq < rows[j].seq
	})
	out := make([]sqlc.Message, 0, len(rows))
	for _, row := range rows {
		out = append(out, cloneMessage(row.Message))
	}
	return out, nil
}

func (s *Store) CountMessagesByConversation(_ context.Context, conversationID pgtype.UUID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("CountMessagesByConversation"); err != nil {
		return 0, err
	}
	var n int64
	for _, row := range s.messages {
		if row.ConversationID == conversationID {
			n++
		}
	}
	return n, nil
}

func (s *Store) UpdateMessageDelivery(_ context.Context, arg sqlc.UpdateMessageDeliveryParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("UpdateMessageDelivery"); err != nil {
		return 0, err
	}
	if !arg.ExternalID.Valid {
		return 0, nil
	}
	var n int64
	for i := range s.messages {
		m := &s.messages[i].Message
		if m.Direction != "out" || m.Source != arg.Source || !m.ExternalID.Valid || m.ExternalID.String != arg.ExternalID.String {
			continue
		}
		m.DeliveryStatus = arg.DeliveryStatus
		if arg.DeliveryAt.Valid {
			m.DeliveryAt = arg.DeliveryAt
		}
		m.DeliveryErrorCode = arg.DeliveryErrorCode
		m.DeliveryErrorMessage = arg.DeliveryErrorMessage
		n++
	}
	return n, nil
}

// Source events

func (s *Store) SourceEventExists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("SourceEventExists"); err != nil {
		return false, err
	}
	return s.hasEvent(id), nil
}

func (s *Store) InsertSourceEvent(_ context.Context, arg sqlc.InsertSourceEventParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("InsertSourceEvent"); err != nil {
		return 0, err
	}
	if s.hasEvent(arg.ID) {
		return 0, nil
	}
	s.appendEvent(arg.ID, arg.Source, arg.Payload)
	return 1, nil
}

func (s *Store) AppendAuditEvent(_ context.Context, arg sqlc.AppendAuditEventParams) (sqlc.SourceEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("AppendAuditEvent"); err != nil {
		return sqlc.SourceEvent{}, err
	}
	return s.appendEvent(uuid.NewString(), arg.Source, arg.Payload), nil
}

func (s *Store) hasEvent(id string) bool {
	for _, row := range s.events {
		if row.ID == id {
			return true
		}
	}
	return false
}

func (s *Store) appendEvent(id, source string, payload []byte) sqlc.SourceEvent {
	e := sqlc.SourceEvent{
		ID:        id,
		Source:    source,
		Payload:   append([]byte(nil), payload...),
		CreatedAt: s.tick(),
	}
	s.events = append(s.events, eventRow{seq: s.seq, SourceEvent: e})
	return cloneEvent(e)
}

func cloneStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func cloneContact(c sqlc.Contact) sqlc.Contact {
	c.Phones = append([]string{}, c.Phones...)
	c.Emails = append([]string{}, c.Emails...)
	return c
}

func cloneMessage(m sqlc.Message) sqlc.Message {
	m.ChannelMeta = append([]byte(nil), m.ChannelMeta...)
	return m
}

func cloneEvent(e sqlc.SourceEvent) sqlc.SourceEvent {
	if e.Payload != nil {
		e.Payload = append([]byte(nil), e.Payload...)
	}
	return e
}
