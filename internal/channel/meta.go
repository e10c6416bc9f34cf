package channel

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Meta is the channel-specific metadata stored with a message.
// Each channel has exactly one concrete type; ExternalID is the provider identifier
// used to correlate the stored row with later provider callbacks.
type Meta interface {
	Channel() Type
	ExternalID() string
}

// WhatsAppMeta is stored for messages carried by the Twilio WhatsApp transport.
// Inbound rows carry From, outbound rows carry To.
type WhatsAppMeta struct {
	SID         string `json:"sid"`
	From        string `json:"from,omitempty"`
	To          string `json:"to,omitempty"`
	ProfileName string `json:"profileName,omitempty"`
}

func (WhatsAppMeta) Channel() Type        { return WhatsApp }
func (m WhatsAppMeta) ExternalID() string { return m.SID }

// VoiceMeta is stored for call summaries.
type VoiceMeta struct {
	CallSID      string `json:"callSid"`
	From         string `json:"from,omitempty"`
	RecordingURL string `json:"recordingUrl,omitempty"`
}

func (VoiceMeta) Channel() Type        { return Phone }
func (m VoiceMeta) ExternalID() string { return m.CallSID }

// EmailMeta is stored for imported and sent emails.
type EmailMeta struct {
	MessageID string `json:"messageId"`
	FromEmail string `json:"fromEmail,omitempty"`
	To        string `json:"to,omitempty"`
	Subject   string `json:"subject,omitempty"`
}

func (EmailMeta) Channel() Type        { return Email }
func (m EmailMeta) ExternalID() string { return m.MessageID }

const discriminatorKey = "channel"

// EncodeMeta serializes m as a flat JSON object tagged with its channel.
func EncodeMeta(m Meta) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	body, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal %s meta: %w", m.Channel(), err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("flatten %s meta: %w", m.Channel(), err)
	}
	tag, err := json.Marshal(string(m.Channel()))
	if err != nil {
		return nil, err
	}
	fields[discriminatorKey] = tag
	return json.Marshal(fields)
}

// DecodeMeta restores the concrete metadata type from its tagged JSON form.
// Empty input (or "{}") yields a nil Meta.
func DecodeMeta(raw []byte) (Meta, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var head struct {
		Channel string `json:"channel"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decode meta: %w", err)
	}
	if head.Channel == "" {
		return nil, nil
	}
	t, err := ParseType(head.Channel)
	if err != nil {
		return nil, err
	}
	switch t {
	case WhatsApp:
		var m WhatsAppMeta
		err = json.Unmarshal(raw, &m)
		return m, err
	case Phone:
		var m VoiceMeta
		err = json.Unmarshal(raw, &m)
		return m, err
	case Email:
		var m EmailMeta
		err = json.Unmarshal(raw, &m)
		return m, err
	}
	return nil, errors.New("unreachable channel type")
}
