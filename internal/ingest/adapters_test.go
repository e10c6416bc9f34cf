package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kurvcrm/kurv/internal/channel"
)

func TestWhatsAppFormEvent(t *testing.T) {
	ev := WhatsAppForm{SmsMessageSid: "SM1", From: "whatsapp:+15550000", Body: "hi", ProfileName: " Ann "}.Event(nil)
	assert.Equal(t, "SM1", ev.EventID)
	assert.Equal(t, "+15550000", ev.IdentityKey)
	assert.Equal(t, "+15550000", ev.WhatsApp)
	assert.Equal(t, "Ann", ev.ContactName)
	assert.Equal(t, channel.WhatsApp, ev.Channel)
	assert.Equal(t, SourceTwilio, ev.Source)
	assert.Equal(t, "SM1", ev.Meta.ExternalID())

	ev = WhatsAppForm{MessageSid: "MM2", SmsMessageSid: "SM2", From: "+1"}.Event(nil)
	assert.Equal(t, "MM2", ev.EventID)
}

func TestVoicePayloadEvent(t *testing.T) {
	summary, rec := "Asked about pricing", "https://rec/1"
	ev := VoicePayload{CallSid: "CA1", From: "+1", Summary: &summary, RecordingURL: &rec}.Event()
	assert.Equal(t, "CA1", ev.EventID)
	assert.Equal(t, summary, ev.Body)
	assert.Equal(t, channel.VoiceMeta{CallSID: "CA1", From: "+1", RecordingURL: rec}, ev.Meta)

	ev = VoicePayload{CallID: "CA2", From: "+1"}.Event()
	assert.Equal(t, "CA2", ev.EventID)
	assert.Equal(t, channel.VoicePlaceholder, ev.Body)
}

func TestEmailEvent(t *testing.T) {
	ev := EmailEvent(SourceMailgun, " <m@x> ", " Bob@Example.COM", "inbox@kurv.test", " Hi ", "body")
	assert.Equal(t, "<m@x>", ev.EventID)
	assert.Equal(t, "bob@example.com", ev.IdentityKey)
	assert.Equal(t, "Hi", ev.Subject)
	assert.Equal(t, channel.EmailMeta{MessageID: "<m@x>", FromEmail: "bob@example.com", To: "inbox@kurv.test", Subject: "Hi"}, ev.Meta)
}
