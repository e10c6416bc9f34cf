// Package ledger records which upstream events have already been processed and keeps
// an append-only audit trail of raw provider callbacks.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kurvcrm/kurv/internal/db/sqlc"
)

// ErrInvalidInput is returned for an empty event id or source tag.
var ErrInvalidInput = errors.New("ledger: event id and source are required")

// Service is the idempotency gate keyed by upstream event id.
type Service struct {
	queries sqlc.Querier
	logger  *slog.Logger
}

func NewService(log *slog.Logger, queries sqlc.Querier) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		queries: queries,
		logger:  log.With(slog.String("service", "ledger")),
	}
}

// Check reports whether eventID has already been committed.
func (s *Service) Check(ctx context.Context, eventID string) (bool, error) {
	if s.queries == nil {
		return false, fmt.Errorf("ledger queries not configured")
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return false, ErrInvalidInput
	}
	seen, err := s.queries.SourceEventExists(ctx, eventID)
	if err != nil {
		return false, fmt.Errorf("check source event: %w", err)
	}
	return seen, nil
}

// Commit records eventID. Call it only after every downstream write for the event succeeded.
// It returns false when a concurrent request committed the same id first.
func (s *Service) Commit(ctx context.Context, eventID, source string, payload any) (bool, error) {
	if s.queries == nil {
		return false, fmt.Errorf("ledger queries not configured")
	}
	eventID = strings.TrimSpace(eventID)
	source = strings.TrimSpace(source)
	if eventID == "" || source == "" {
		return false, ErrInvalidInput
	}
	raw, err := encodePayload(payload)
	if err != nil {
		return false, err
	}
	n, err := s.queries.InsertSourceEvent(ctx, sqlc.InsertSourceEventParams{
		ID:      eventID,
		Source:  source,
		Payload: raw,
	})
	if err != nil {
		return false, fmt.Errorf("commit source event: %w", err)
	}
	if n == 0 {
		s.logger.Warn("source event already committed",
			slog.String("event_id", eventID),
			slog.String("source", source),
		)
		return false, nil
	}
	return true, nil
}

// Audit appends payload under a generated id and returns that id.
func (s *Service) Audit(ctx context.Context, source string, payload any) (string, error) {
	if s.queries == nil {
		return "", fmt.Errorf("ledger queries not configured")
	}
	source = strings.TrimSpace(source)
	if source == "" {
		return "", ErrInvalidInput
	}
	raw, err := encodePayload(payload)
	if err != nil {
		return "", err
	}
	row, err := s.queries.AppendAuditEvent(ctx, sqlc.AppendAuditEventParams{
		Source:  source,
		Payload: raw,
	})
	if err != nil {
		return "", fmt.Errorf("append audit event: %w", err)
	}
	return row.ID, nil
}

func encodePayload(payload any) ([]byte, error) {
	switch v := payload.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		if len(v) == 0 {
			return nil, nil
		}
		return v, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode ledger payload: %w", err)
	}
	return raw, nil
}
