// Package channel defines the communication channels a message can travel through,
// their per-channel metadata, and their addressing conventions.
package channel

import (
	"fmt"
	"strings"
)

// Type identifies a communication channel.
type Type string

const (
	WhatsApp Type = "whatsapp"
	Phone    Type = "phone"
	Email    Type = "email"
)

// VoicePlaceholder is stored as the body of a call event that carries no summary.
const VoicePlaceholder = "Incoming call"

// ParseType validates a channel name.
func ParseType(raw string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(raw))); t {
	case WhatsApp, Phone, Email:
		return t, nil
	case "voice":
		return Phone, nil
	default:
		return "", fmt.Errorf("unsupported channel: %s", raw)
	}
}

// Placeholder returns the body used when an adapter supplies no text.
func (t Type) Placeholder() string {
	if t == Phone {
		return VoicePlaceholder
	}
	return ""
}

// IdentityKind returns which identity set a channel's addresses resolve against.
func (t Type) IdentityKind() IdentityKind {
	if t == Email {
		return KindEmail
	}
	return KindPhone
}

// IdentityKind selects the contact identity set (phones or emails).
type IdentityKind string

const (
	KindPhone IdentityKind = "phone"
	KindEmail IdentityKind = "email"
)

// Direction of a stored message relative to this system.
type Direction string

const (
	Inbound  Direction = "in"
	Outbound Direction = "out"
)

// OriginImport tags messages that arrived through an ingestion webhook.
const OriginImport = "import"

// Conversation statuses.
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)
