// Package contacts resolves identity keys (phone numbers, email addresses) to contact records.
package contacts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/kurvcrm/kurv/internal/channel"
	"github.com/kurvcrm/kurv/internal/db"
	"github.com/kurvcrm/kurv/internal/db/sqlc"
)

var (
	ErrNotFound     = errors.New("contact not found")
	ErrInvalidInput = errors.New("contact identity key and kind are required")
)

type Service struct {
	queries sqlc.Querier
	locker  db.KeyLocker
	logger  *slog.Logger
}

// NewService creates a contact resolver. A nil locker disables per-key serialization.
func NewService(log *slog.Logger, queries sqlc.Querier, locker db.KeyLocker) *Service {
	if log == nil {
		log = slog.Default()
	}
	if locker == nil {
		locker = db.NoopLocker{Queries: queries}
	}
	return &Service{
		queries: queries,
		locker:  locker,
		logger:  log.With(slog.String("service", "contacts")),
	}
}

// Resolve returns the contact whose identity set of the given kind contains key,
// creating a contact holding only that key when none exists.
func (s *Service) Resolve(ctx context.Context, key string, kind channel.IdentityKind) (Resolution, error) {
	return s.ResolveWith(ctx, ResolveInput{Key: key, Kind: string(kind)})
}

// ResolveWith is Resolve with optional profile fields for a newly created contact.
func (s *Service) ResolveWith(ctx context.Context, input ResolveInput) (Resolution, error) {
	if s.queries == nil {
		return Resolution{}, fmt.Errorf("contacts queries not configured")
	}
	kind := channel.IdentityKind(strings.ToLower(strings.TrimSpace(input.Kind)))
	key := channel.NormalizeIdentity(kind, input.Key)
	if key == "" {
		return Resolution{}, ErrInvalidInput
	}
	if kind != channel.KindPhone && kind != channel.KindEmail {
		return Resolution{}, fmt.Errorf("%w: unsupported kind %q", ErrInvalidInput, input.Kind)
	}

	var res Resolution
	err := s.locker.WithKeyLock(ctx, "contact:"+string(kind)+":"+key, func(ctx context.Context, q sqlc.Querier) error {
		var err error
		res, err = s.findOrCreate(ctx, q, key, kind, input)
		return err
	})
	return res, err
}

func (s *Service) findOrCreate(ctx context.Context, q sqlc.Querier, key string, kind channel.IdentityKind, input ResolveInput) (Resolution, error) {
	var (
		row sqlc.Contact
		err error
	)
	if kind == channel.KindEmail {
		row, err = q.FindContactByEmail(ctx, key)
	} else {
		row, err = q.FindContactByPhone(ctx, key)
	}
	if err == nil {
		return Resolution{ContactID: db.UUIDString(row.ID)}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Resolution{}, fmt.Errorf("find contact by %s: %w", kind, err)
	}

	params := sqlc.CreateContactParams{
		Phones:   []string{},
		Emails:   []string{},
		Whatsapp: db.ToPgText(input.WhatsApp),
		Name:     db.ToPgText(input.Name),
	}
	if kind == channel.KindEmail {
		params.Emails = []string{key}
	} else {
		params.Phones = []string{key}
	}
	row, err = q.CreateContact(ctx, params)
	if err != nil {
		return Resolution{}, fmt.Errorf("create contact: %w", err)
	}
	id := db.UUIDString(row.ID)
	s.logger.Info("contact created", slog.String("contact_id", id), slog.String("kind", string(kind)))
	return Resolution{ContactID: id, Created: true}, nil
}

func (s *Service) GetByID(ctx context.Context, contactID string) (Contact, error) {
	if s.queries == nil {
		return Contact{}, fmt.Errorf("contacts queries not configured")
	}
	pgID, err := db.ParseUUID(contactID)
	if err != nil {
		return Contact{}, err
	}
	row, err := s.queries.GetContactByID(ctx, pgID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contact{}, ErrNotFound
		}
		return Contact{}, err
	}
	return toContact(row), nil
}

// Destination returns the address a reply on channel t should go to.
// WhatsApp and voice use the WhatsApp handle, then the first phone; email uses the first email.
func (c Contact) Destination(t channel.Type) string {
	if t == channel.Email {
		if len(c.Emails) > 0 {
			return c.Emails[0]
		}
		return ""
	}
	if c.WhatsApp != "" {
		return c.WhatsApp
	}
	if len(c.Phones) > 0 {
		return c.Phones[0]
	}
	return ""
}

func toContact(row sqlc.Contact) Contact {
	phones := row.Phones
	if phones == nil {
		phones = []string{}
	}
	emails := row.Emails
	if emails == nil {
		emails = []string{}
	}
	return Contact{
		ID:        db.UUIDString(row.ID),
		Phones:    phones,
		Emails:    emails,
		WhatsApp:  db.TextToString(row.Whatsapp),
		Name:      db.TextToString(row.Name),
		CreatedAt: db.TimeFromPg(row.CreatedAt),
	}
}
