// Package transport defines the synchronous outbound delivery contract shared by the
// WhatsApp and email providers.
package transport

import (
	"context"
	"fmt"
	"strings"

	"github.com/kurvcrm/kurv/internal/channel"
)

// Message is one outbound message. To is already normalized for the channel.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Receipt is what the provider returned for an accepted message.
type Receipt struct {
	// ID is the provider message id later used to correlate status callbacks.
	ID     string
	Status string
}

// Sender delivers messages on one channel.
type Sender interface {
	// Name is the origin tag stored on messages sent through this transport.
	Name() string
	Channel() channel.Type
	Send(ctx context.Context, msg Message) (Receipt, error)
}

// Error is a non-success transport outcome. Nothing is persisted when a send returns it.
type Error struct {
	Transport  string
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Transport)
	b.WriteString(" send failed")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Code != "" {
		fmt.Fprintf(&b, " [code %s]", e.Code)
	}
	switch {
	case e.Message != "":
		b.WriteString(": ")
		b.WriteString(e.Message)
	case e.Err != nil:
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Detail is the provider-facing explanation surfaced to API callers.
func (e *Error) Detail() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Transport + " error"
}
