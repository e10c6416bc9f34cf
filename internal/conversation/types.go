package conversation

import "time"

// Conversation is a thread between one contact and the system on one channel.
type Conversation struct {
	ID        string     `json:"id"`
	ContactID string     `json:"contact_id"`
	Channel   string     `json:"channel"`
	Subject   string     `json:"subject,omitempty"`
	Status    string     `json:"status"`
	LastMsgAt *time.Time `json:"last_msg_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Resolution is the result of ResolveOrCreate.
type Resolution struct {
	Conversation Conversation
	Created      bool
}
