package contacts

import "time"

// Contact is an identity record. It is found only through its phone or email sets.
type Contact struct {
	ID        string    `json:"id"`
	Phones    []string  `json:"phones"`
	Emails    []string  `json:"emails"`
	WhatsApp  string    `json:"whatsapp,omitempty"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ResolveInput describes an identity key seen on an inbound or outbound message.
// WhatsApp and Name are only applied when a new contact is created.
type ResolveInput struct {
	Key      string
	Kind     string
	WhatsApp string
	Name     string
}

// Resolution is the result of Resolve.
type Resolution struct {
	ContactID string
	Created   bool
}
