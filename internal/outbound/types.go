package outbound

import (
	"context"

	"github.com/kurvcrm/kurv/internal/channel"
	"github.com/kurvcrm/kurv/internal/contacts"
	"github.com/kurvcrm/kurv/internal/conversation"
	"github.com/kurvcrm/kurv/internal/message"
	"github.com/kurvcrm/kurv/internal/transport"
)

// TransportError is returned when the provider did not accept a message.
type TransportError = transport.Error

// WarningNotLogged is reported when a message was delivered to the provider but not stored.
const WarningNotLogged = "message sent but not logged"

// SendInput is one outbound send request.
type SendInput struct {
	Channel channel.Type
	To      string
	Subject string
	Body    string
	// ConversationID, when set, must name an existing conversation.
	ConversationID string
}

// SendResult reports a send accepted by the transport.
// Logged is false when storing the sent message failed afterwards.
type SendResult struct {
	TransportID    string `json:"transportId"`
	ConversationID string `json:"conversationId,omitempty"`
	MessageID      string `json:"messageId,omitempty"`
	Logged         bool   `json:"logged"`
	Warning        string `json:"warning,omitempty"`
}

// Conversations is the thread lookup and routing the sender needs.
type Conversations interface {
	conversation.Reader
	conversation.Router
}

// Contacts resolves destinations to contacts and back.
type Contacts interface {
	ResolveWith(ctx context.Context, input contacts.ResolveInput) (contacts.Resolution, error)
	GetByID(ctx context.Context, contactID string) (contacts.Contact, error)
}

// MessageAppender stores a message.
type MessageAppender interface {
	Append(ctx context.Context, input message.AppendInput) (message.Message, error)
}
