// Package outbound sends messages through a channel transport and logs them to their thread.
package outbound

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kurvcrm/kurv/internal/channel"
	"github.com/kurvcrm/kurv/internal/contacts"
	"github.com/kurvcrm/kurv/internal/conversation"
	"github.com/kurvcrm/kurv/internal/message"
	"github.com/kurvcrm/kurv/internal/transport"
)

var (
	ErrInvalidInput  = errors.New("invalid send request")
	ErrNoTransport   = errors.New("no transport configured for channel")
	ErrNoDestination = errors.New("no destination on contact")
)

// Service dispatches outbound messages. Sends are never retried.
type Service struct {
	transports    map[channel.Type]transport.Sender
	contacts      Contacts
	conversations Conversations
	messages      MessageAppender
	logger        *slog.Logger
}

// NewService registers one transport per channel; nil senders are skipped.
func NewService(log *slog.Logger, contactSvc Contacts, conversations Conversations, messages MessageAppender, senders ...transport.Sender) *Service {
	if log == nil {
		log = slog.Default()
	}
	s := &Service{
		transports:    map[channel.Type]transport.Sender{},
		contacts:      contactSvc,
		conversations: conversations,
		messages:      messages,
		logger:        log.With(slog.String("service", "outbound")),
	}
	for _, sender := range senders {
		if sender == nil {
			continue
		}
		s.transports[sender.Channel()] = sender
	}
	return s
}

// Transport returns the sender registered for t.
func (s *Service) Transport(t channel.Type) (transport.Sender, bool) {
	sender, ok := s.transports[t]
	return sender, ok
}

// Send delivers in.Body to in.To. A transport failure returns *TransportError and writes nothing.
// After the transport accepted the message, storage failures are reported in the result, not as an error.
func (s *Service) Send(ctx context.Context, in SendInput) (SendResult, error) {
	to := strings.TrimSpace(in.To)
	if to == "" || strings.TrimSpace(in.Body) == "" {
		return SendResult{}, fmt.Errorf("%w: 'to' and 'body' are required", ErrInvalidInput)
	}
	sender, ok := s.transports[in.Channel]
	if !ok {
		return SendResult{}, fmt.Errorf("%w: %s", ErrNoTransport, in.Channel)
	}
	conversationID := strings.TrimSpace(in.ConversationID)
	if conversationID != "" {
		if _, err := s.conversations.Get(ctx, conversationID); err != nil {
			return SendResult{}, err
		}
	}

	dest := channel.NormalizeAddress(in.Channel, to)
	receipt, err := sender.Send(ctx, transport.Message{To: dest, Subject: in.Subject, Body: in.Body})
	if err != nil {
		var te *TransportError
		if !errors.As(err, &te) {
			te = &TransportError{Transport: sender.Name(), Err: err}
		}
		return SendResult{}, te
	}
	log := s.logger.With(
		slog.String("transport", sender.Name()),
		slog.String("transport_id", receipt.ID),
	)
	res := SendResult{TransportID: receipt.ID, ConversationID: conversationID}

	if err := s.record(ctx, sender, in, dest, receipt, &res); err != nil {
		log.Error("message sent but not logged", slog.Any("error", err))
		res.Logged = false
		res.Warning = WarningNotLogged
		return res, nil
	}
	res.Logged = true
	log.Info("message sent", slog.String("conversation_id", res.ConversationID))
	return res, nil
}

func (s *Service) record(ctx context.Context, sender transport.Sender, in SendInput, dest string, receipt transport.Receipt, res *SendResult) error {
	if res.ConversationID == "" {
		contact, err := s.contacts.ResolveWith(ctx, contacts.ResolveInput{
			Key:  channel.IdentityKey(in.Channel, dest),
			Kind: string(in.Channel.IdentityKind()),
		})
		if err != nil {
			return fmt.Errorf("resolve contact: %w", err)
		}
		thread, err := s.conversations.ResolveOrCreate(ctx, contact.ContactID, string(in.Channel), in.Subject)
		if err != nil {
			return fmt.Errorf("resolve conversation: %w", err)
		}
		res.ConversationID = thread.Conversation.ID
	}

	msg, err := s.messages.Append(ctx, message.AppendInput{
		ConversationID: res.ConversationID,
		Channel:        in.Channel,
		Direction:      channel.Outbound,
		Origin:         sender.Name(),
		Body:           in.Body,
		Meta:           sentMeta(in, dest, receipt),
	})
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	res.MessageID = msg.ID
	if err := s.conversations.Touch(ctx, res.ConversationID); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}

func sentMeta(in SendInput, dest string, receipt transport.Receipt) channel.Meta {
	switch in.Channel {
	case channel.Email:
		return channel.EmailMeta{MessageID: receipt.ID, To: dest, Subject: strings.TrimSpace(in.Subject)}
	default:
		return channel.WhatsAppMeta{SID: receipt.ID, To: dest}
	}
}

// Reply sends body to the contact of an existing conversation and logs it to that conversation.
// Email threads reply by email to the contact's first address; every other thread replies on
// WhatsApp to the contact's handle or first phone number.
func (s *Service) Reply(ctx context.Context, conversationID, body string) (SendResult, error) {
	if strings.TrimSpace(body) == "" {
		return SendResult{}, fmt.Errorf("%w: message body required", ErrInvalidInput)
	}
	conv, err := s.conversations.Get(ctx, conversationID)
	if err != nil {
		return SendResult{}, err
	}
	contact, err := s.contacts.GetByID(ctx, conv.ContactID)
	if err != nil {
		if errors.Is(err, contacts.ErrNotFound) {
			return SendResult{}, fmt.Errorf("%w: conversation contact missing", conversation.ErrNotFound)
		}
		return SendResult{}, fmt.Errorf("load contact: %w", err)
	}

	replyChannel := channel.WhatsApp
	if conv.Channel == string(channel.Email) {
		replyChannel = channel.Email
	}
	to := contact.Destination(replyChannel)
	if to == "" {
		return SendResult{}, ErrNoDestination
	}
	in := SendInput{
		Channel:        replyChannel,
		To:             to,
		Body:           strings.TrimSpace(body),
		ConversationID: conv.ID,
	}
	if replyChannel == channel.Email {
		in.Subject = replySubject(conv.Subject)
	}
	return s.Send(ctx, in)
}

func replySubject(subject string) string {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}
