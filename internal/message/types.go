package message

import (
	"time"

	"github.com/kurvcrm/kurv/internal/channel"
)

// Message is a persisted message. Only the delivery fields change after insert.
type Message struct {
	ID             string       `json:"id"`
	ConversationID string       `json:"conversation_id"`
	Channel        string       `json:"channel"`
	Direction      string       `json:"direction"`
	Origin         string       `json:"origin"`
	Body           string       `json:"body"`
	Meta           channel.Meta `json:"meta,omitempty"`
	ExternalID     string       `json:"external_id,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	Delivery       *Delivery    `json:"delivery,omitempty"`
}

// Delivery is the provider-reported state of an outbound message.
type Delivery struct {
	Status       string     `json:"status"`
	At           *time.Time `json:"at,omitempty"`
	ErrorCode    string     `json:"error_code,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// AppendInput is the input for appending a message to a conversation.
// Channel may be omitted when Meta is set.
type AppendInput struct {
	ConversationID string
	Channel        channel.Type
	Direction      channel.Direction
	Origin         string
	Body           string
	Meta           channel.Meta
}
