package ingest

import (
	"strings"

	"github.com/kurvcrm/kurv/internal/channel"
)

// Ledger source tags per upstream.
const (
	SourceTwilio  = "twilio"
	SourceGmail   = "gmail"
	SourceMailgun = "mailgun"
)

// WhatsAppForm is the subset of Twilio's inbound message webhook we read.
type WhatsAppForm struct {
	MessageSid    string `form:"MessageSid"`
	SmsMessageSid string `form:"SmsMessageSid"`
	From          string `form:"From"`
	To            string `form:"To"`
	Body          string `form:"Body"`
	ProfileName   string `form:"ProfileName"`
}

// Event normalizes the webhook. The sender's whatsapp: prefix is stripped.
func (f WhatsAppForm) Event(raw any) Event {
	sid := strings.TrimSpace(f.MessageSid)
	if sid == "" {
		sid = strings.TrimSpace(f.SmsMessageSid)
	}
	from := channel.StripWhatsAppPrefix(f.From)
	return Event{
		EventID:     sid,
		Source:      SourceTwilio,
		Channel:     channel.WhatsApp,
		IdentityKey: from,
		Body:        f.Body,
		ContactName: strings.TrimSpace(f.ProfileName),
		WhatsApp:    from,
		Meta: channel.WhatsAppMeta{
			SID:         sid,
			From:        from,
			ProfileName: strings.TrimSpace(f.ProfileName),
		},
		Payload: raw,
	}
}

// VoicePayload is a call summary posted by the voice provider integration.
// Either callSid or callId identifies the call.
type VoicePayload struct {
	CallSid      string  `json:"callSid"`
	CallID       string  `json:"callId"`
	From         string  `json:"from"`
	Summary      *string `json:"summary"`
	RecordingURL *string `json:"recordingUrl"`
}

func (p VoicePayload) Event() Event {
	callID := strings.TrimSpace(p.CallSid)
	if callID == "" {
		callID = strings.TrimSpace(p.CallID)
	}
	from := strings.TrimSpace(p.From)
	body := channel.VoicePlaceholder
	if p.Summary != nil {
		body = *p.Summary
	}
	meta := channel.VoiceMeta{CallSID: callID, From: from}
	if p.RecordingURL != nil {
		meta.RecordingURL = strings.TrimSpace(*p.RecordingURL)
	}
	return Event{
		EventID:     callID,
		Source:      SourceTwilio,
		Channel:     channel.Phone,
		IdentityKey: from,
		Body:        body,
		Meta:        meta,
	}
}

// EmailPayload is an email import posted by the mailbox integration.
type EmailPayload struct {
	MessageID string  `json:"messageId"`
	FromEmail string  `json:"fromEmail"`
	Subject   *string `json:"subject"`
	Text      *string `json:"text"`
}

func (p EmailPayload) Event() Event {
	return EmailEvent(SourceGmail, p.MessageID, p.FromEmail, "", deref(p.Subject), deref(p.Text))
}

// EmailEvent builds an email event for any inbound mail source.
func EmailEvent(source, messageID, fromEmail, to, subject, text string) Event {
	messageID = strings.TrimSpace(messageID)
	fromEmail = strings.ToLower(strings.TrimSpace(fromEmail))
	subject = strings.TrimSpace(subject)
	return Event{
		EventID:     messageID,
		Source:      source,
		Channel:     channel.Email,
		IdentityKey: fromEmail,
		Body:        text,
		Subject:     subject,
		Meta: channel.EmailMeta{
			MessageID: messageID,
			FromEmail: fromEmail,
			To:        strings.TrimSpace(to),
			Subject:   subject,
		},
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
