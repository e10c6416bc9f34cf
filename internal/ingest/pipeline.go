// Package ingest runs the inbound pipeline shared by every channel adapter:
// dedup check, contact resolution, thread selection, append, touch, ledger commit.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kurvcrm/kurv/internal/channel"
	"github.com/kurvcrm/kurv/internal/contacts"
	"github.com/kurvcrm/kurv/internal/conversation"
	"github.com/kurvcrm/kurv/internal/message"
)

// ErrInvalidInput is returned when an event lacks its dedup key or sender identity.
var ErrInvalidInput = errors.New("invalid inbound event")

// Pipeline ingests normalized inbound events.
type Pipeline struct {
	ledger        Ledger
	contacts      ContactResolver
	conversations conversation.Router
	messages      MessageAppender
	logger        *slog.Logger
}

func NewPipeline(log *slog.Logger, ledger Ledger, contactResolver ContactResolver, router conversation.Router, messages MessageAppender) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		ledger:        ledger,
		contacts:      contactResolver,
		conversations: router,
		messages:      messages,
		logger:        log.With(slog.String("service", "ingest")),
	}
}

// Ingest processes ev exactly once per EventID. Steps run sequentially and are not
// transactional: a failure part way leaves earlier writes in place and the ledger
// uncommitted, so an upstream retry re-runs the pipeline.
func (p *Pipeline) Ingest(ctx context.Context, ev Event) (Result, error) {
	ev.EventID = strings.TrimSpace(ev.EventID)
	ev.IdentityKey = strings.TrimSpace(ev.IdentityKey)
	if ev.EventID == "" || ev.IdentityKey == "" {
		return Result{}, fmt.Errorf("%w: event id and sender are required", ErrInvalidInput)
	}
	if _, err := channel.ParseType(string(ev.Channel)); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if ev.Meta != nil && ev.Meta.Channel() != ev.Channel {
		return Result{}, fmt.Errorf("%w: %s metadata on %s event", ErrInvalidInput, ev.Meta.Channel(), ev.Channel)
	}
	source := strings.TrimSpace(ev.Source)
	if source == "" {
		source = string(ev.Channel)
	}
	log := p.logger.With(
		slog.String("event_id", ev.EventID),
		slog.String("channel", string(ev.Channel)),
	)

	seen, err := p.ledger.Check(ctx, ev.EventID)
	if err != nil {
		return Result{}, err
	}
	if seen {
		log.Info("duplicate event skipped")
		return Result{Dedup: true}, nil
	}

	contact, err := p.contacts.ResolveWith(ctx, contacts.ResolveInput{
		Key:      ev.IdentityKey,
		Kind:     string(ev.Channel.IdentityKind()),
		WhatsApp: ev.WhatsApp,
		Name:     ev.ContactName,
	})
	if err != nil {
		return Result{}, fmt.Errorf("resolve contact: %w", err)
	}
	res := Result{ContactID: contact.ContactID, ContactCreated: contact.Created}

	thread, err := p.conversations.ResolveOrCreate(ctx, contact.ContactID, string(ev.Channel), ev.Subject)
	if err != nil {
		return res, fmt.Errorf("resolve conversation: %w", err)
	}
	res.ConversationID = thread.Conversation.ID
	res.ConversationCreated = thread.Created

	msg, err := p.messages.Append(ctx, message.AppendInput{
		ConversationID: thread.Conversation.ID,
		Channel:        ev.Channel,
		Direction:      channel.Inbound,
		Origin:         channel.OriginImport,
		Body:           ev.Body,
		Meta:           ev.Meta,
	})
	switch {
	case errors.Is(err, message.ErrDuplicate):
		// Stored by an earlier attempt that never reached the ledger commit.
		log.Warn("event already stored, committing ledger")
		if _, err := p.ledger.Commit(ctx, ev.EventID, source, ev.Payload); err != nil {
			return res, fmt.Errorf("commit ledger: %w", err)
		}
		res.Dedup = true
		return res, nil
	case err != nil:
		return res, fmt.Errorf("append message: %w", err)
	}
	res.MessageID = msg.ID

	if err := p.conversations.Touch(ctx, thread.Conversation.ID); err != nil {
		return res, fmt.Errorf("touch conversation: %w", err)
	}
	if _, err := p.ledger.Commit(ctx, ev.EventID, source, ev.Payload); err != nil {
		return res, fmt.Errorf("commit ledger: %w", err)
	}
	log.Info("event ingested",
		slog.String("conversation_id", res.ConversationID),
		slog.String("message_id", res.MessageID),
		slog.Bool("contact_created", res.ContactCreated),
	)
	return res, nil
}
