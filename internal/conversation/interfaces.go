package conversation

import "context"

// Reader defines conversation lookup behavior.
type Reader interface {
	Get(ctx context.Context, conversationID string) (Conversation, error)
}

// Router picks and refreshes the thread a message belongs to.
type Router interface {
	ResolveOrCreate(ctx context.Context, contactID, channel, subject string) (Resolution, error)
	Touch(ctx context.Context, conversationID string) error
}
