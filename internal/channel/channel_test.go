package channel

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		raw     string
		want    Type
		wantErr bool
	}{
		{"whatsapp", WhatsApp, false},
		{" Phone ", Phone, false},
		{"voice", Phone, false},
		{"EMAIL", Email, false},
		{"sms", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseType(tt.raw)
		if tt.wantErr {
			assert.Error(t, err, tt.raw)
			continue
		}
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got)
	}
}

func TestPlaceholderOnlyForVoice(t *testing.T) {
	assert.Equal(t, "Incoming call", Phone.Placeholder())
	assert.Empty(t, WhatsApp.Placeholder())
	assert.Empty(t, Email.Placeholder())
}

func TestWhatsAppAddressAddsPrefixOnce(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"+15550000", "whatsapp:+15550000"},
		{"whatsapp:+15550000", "whatsapp:+15550000"},
		{"  +15550000 ", "whatsapp:+15550000"},
		{" whatsapp:+15550000", "whatsapp:+15550000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, WhatsAppAddress(tt.in), tt.in)
		assert.Equal(t, tt.want, WhatsAppAddress(WhatsAppAddress(tt.in)), "idempotent for %q", tt.in)
	}
}

func TestIdentityKey(t *testing.T) {
	assert.Equal(t, "+15550000", IdentityKey(WhatsApp, "whatsapp:+15550000"))
	assert.Equal(t, "+15550000", IdentityKey(WhatsApp, "+15550000"))
	assert.Equal(t, "a@example.com", IdentityKey(Email, " a@example.com "))
	assert.Equal(t, "ann@example.com", IdentityKey(Email, "Ann@Example.COM"))
	assert.Equal(t, "+15550000", NormalizeIdentity(KindPhone, " +15550000 "))
	assert.Equal(t, "ann@example.com", NormalizeIdentity(KindEmail, " Ann@Example.com"))
	assert.Equal(t, "a@example.com", NormalizeAddress(Email, " a@example.com "))
}

func TestMetaRoundTripKeepsConcreteType(t *testing.T) {
	metas := []Meta{
		WhatsAppMeta{SID: "SM1", From: "+15550000", ProfileName: "Ann"},
		VoiceMeta{CallSID: "CA1", From: "+15550000", RecordingURL: "https://rec/1"},
		EmailMeta{MessageID: "<m1@x>", FromEmail: "a@example.com", Subject: "hi"},
	}
	for _, m := range metas {
		raw, err := EncodeMeta(m)
		require.NoError(t, err)

		var flat map[string]any
		require.NoError(t, json.Unmarshal(raw, &flat))
		assert.Equal(t, string(m.Channel()), flat["channel"])

		decoded, err := DecodeMeta(raw)
		require.NoError(t, err)
		assert.Equal(t, m, decoded)
		assert.Equal(t, m.ExternalID(), decoded.ExternalID())
	}
}

func TestWhatsAppMetaUsesSidKey(t *testing.T) {
	raw, err := EncodeMeta(WhatsAppMeta{SID: "SM9", To: "whatsapp:+1"})
	require.NoError(t, err)
	var flat map[string]any
	require.NoError(t, json.Unmarshal(raw, &flat))
	assert.Equal(t, "SM9", flat["sid"])
	assert.Equal(t, "whatsapp:+1", flat["to"])
	assert.NotContains(t, flat, "from")
}

func TestDecodeMetaEmptyAndUnknown(t *testing.T) {
	m, err := DecodeMeta(nil)
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = DecodeMeta([]byte("{}"))
	require.NoError(t, err)
	assert.Nil(t, m)

	_, err = DecodeMeta([]byte(`{"channel":"fax"}`))
	assert.Error(t, err)

	_, err = DecodeMeta([]byte(`not json`))
	assert.Error(t, err)
}
