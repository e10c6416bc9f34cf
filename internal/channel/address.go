package channel

import "strings"

// WhatsAppPrefix is the address scheme Twilio requires for WhatsApp numbers.
const WhatsAppPrefix = "whatsapp:"

// WhatsAppAddress returns raw with the WhatsApp prefix present exactly once.
func WhatsAppAddress(raw string) string {
	n := strings.TrimSpace(raw)
	if strings.HasPrefix(n, WhatsAppPrefix) {
		return n
	}
	return WhatsAppPrefix + n
}

// StripWhatsAppPrefix returns the bare phone number of a WhatsApp address.
func StripWhatsAppPrefix(raw string) string {
	return strings.TrimPrefix(strings.TrimSpace(raw), WhatsAppPrefix)
}

// NormalizeAddress formats a destination for the transport of channel t.
func NormalizeAddress(t Type, raw string) string {
	if t == WhatsApp {
		return WhatsAppAddress(raw)
	}
	return strings.TrimSpace(raw)
}

// IdentityKey returns the contact identity value for an address on channel t.
func IdentityKey(t Type, raw string) string {
	if t == WhatsApp {
		return StripWhatsAppPrefix(raw)
	}
	return NormalizeIdentity(t.IdentityKind(), raw)
}

// NormalizeIdentity returns the stored form of an identity value of kind k.
// Email addresses match case-insensitively and are kept lowercased.
func NormalizeIdentity(k IdentityKind, raw string) string {
	n := strings.TrimSpace(raw)
	if k == KindEmail {
		return strings.ToLower(n)
	}
	return n
}
