package ingest

import (
	"context"

	"github.com/kurvcrm/kurv/internal/channel"
	"github.com/kurvcrm/kurv/internal/contacts"
	"github.com/kurvcrm/kurv/internal/message"
)

// Event is one normalized inbound event produced by a channel adapter.
type Event struct {
	// EventID is the upstream id used as the dedup key.
	EventID string
	// Source is the ledger tag of the upstream provider.
	Source      string
	Channel     channel.Type
	IdentityKey string
	Body        string
	Subject     string
	// ContactName and WhatsApp are applied only when the contact is created.
	ContactName string
	WhatsApp    string
	Meta        channel.Meta
	// Payload is the raw upstream payload kept with the ledger entry. Optional.
	Payload any
}

// Result describes what Ingest did.
type Result struct {
	Dedup               bool   `json:"dedup,omitempty"`
	ContactID           string `json:"contactId,omitempty"`
	ConversationID      string `json:"conversationId,omitempty"`
	MessageID           string `json:"messageId,omitempty"`
	ContactCreated      bool   `json:"-"`
	ConversationCreated bool   `json:"-"`
}

// Ledger is the idempotency gate.
type Ledger interface {
	Check(ctx context.Context, eventID string) (bool, error)
	Commit(ctx context.Context, eventID, source string, payload any) (bool, error)
}

// ContactResolver maps an identity key to a contact.
type ContactResolver interface {
	ResolveWith(ctx context.Context, input contacts.ResolveInput) (contacts.Resolution, error)
}

// MessageAppender stores a message.
type MessageAppender interface {
	Append(ctx context.Context, input message.AppendInput) (message.Message, error)
}
