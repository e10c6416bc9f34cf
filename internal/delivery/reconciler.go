// Package delivery applies asynchronous delivery-status callbacks to sent messages.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	dbpkg "github.com/kurvcrm/kurv/internal/db"
	"github.com/kurvcrm/kurv/internal/db/sqlc"
)

// AuditSource tags raw status callbacks in the event ledger.
const AuditSource = "twilio_status"

// Signature policy modes.
const (
	SignatureOff     = "off"
	SignatureLog     = "log"
	SignatureEnforce = "enforce"
)

var (
	ErrInvalidInput     = errors.New("invalid status callback")
	ErrInvalidSignature = errors.New("invalid callback signature")
)

// StatusUpdate is one delivery-status report for a previously sent message.
type StatusUpdate struct {
	ExternalMessageID string
	Status            string
	ErrorCode         string
	ErrorMessage      string
}

// ApplyResult reports how many stored messages the update matched.
type ApplyResult struct {
	Matched  int64  `json:"matched"`
	Status   Status `json:"status"`
	Terminal bool   `json:"terminal"`
}

// Callback is a raw provider status post.
type Callback struct {
	Params    url.Values
	Signature string
}

// Auditor keeps raw callbacks.
type Auditor interface {
	Audit(ctx context.Context, source string, payload any) (string, error)
}

// Policy controls callback signature checks.
// CallbackURL is the exact public URL the provider posts to.
type Policy struct {
	Mode        string
	AuthToken   string
	CallbackURL string
}

// Reconciler correlates status callbacks to outbound messages of one transport.
type Reconciler struct {
	queries   sqlc.Querier
	audit     Auditor
	transport string
	policy    Policy
	logger    *slog.Logger
	now       func() time.Time
}

func NewReconciler(log *slog.Logger, queries sqlc.Querier, audit Auditor, transportName string, policy Policy) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	policy.Mode = strings.ToLower(strings.TrimSpace(policy.Mode))
	if policy.Mode == "" {
		policy.Mode = SignatureLog
	}
	return &Reconciler{
		queries:   queries,
		audit:     audit,
		transport: transportName,
		policy:    policy,
		logger:    log.With(slog.String("service", "delivery")),
		now:       time.Now,
	}
}

// UpdateFromParams reads Twilio's status callback fields.
func UpdateFromParams(params url.Values) StatusUpdate {
	return StatusUpdate{
		ExternalMessageID: strings.TrimSpace(params.Get("MessageSid")),
		Status:            strings.TrimSpace(params.Get("MessageStatus")),
		ErrorCode:         strings.TrimSpace(params.Get("ErrorCode")),
		ErrorMessage:      strings.TrimSpace(params.Get("ErrorMessage")),
	}
}

func validate(u StatusUpdate) (Status, error) {
	if strings.TrimSpace(u.ExternalMessageID) == "" {
		return "", fmt.Errorf("%w: missing MessageSid", ErrInvalidInput)
	}
	status, ok := ParseStatus(u.Status)
	if !ok {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, u.Status)
	}
	return status, nil
}

// Apply overwrites the delivery fields of every outbound message of this transport whose
// external id matches. The delivery time is set only for terminal statuses.
// Matching nothing is not an error.
func (r *Reconciler) Apply(ctx context.Context, u StatusUpdate) (ApplyResult, error) {
	if r.queries == nil {
		return ApplyResult{}, fmt.Errorf("delivery queries not configured")
	}
	status, err := validate(u)
	if err != nil {
		return ApplyResult{}, err
	}
	params := sqlc.UpdateMessageDeliveryParams{
		DeliveryStatus:       pgtype.Text{String: string(status), Valid: true},
		DeliveryErrorCode:    dbpkg.ToPgText(u.ErrorCode),
		DeliveryErrorMessage: dbpkg.ToPgText(u.ErrorMessage),
		Source:               r.transport,
		ExternalID:           dbpkg.ToPgText(u.ExternalMessageID),
	}
	if status.Terminal() {
		params.DeliveryAt = pgtype.Timestamptz{Time: r.now().UTC(), Valid: true}
	}
	n, err := r.queries.UpdateMessageDelivery(ctx, params)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("update delivery status: %w", err)
	}
	res := ApplyResult{Matched: n, Status: status, Terminal: status.Terminal()}
	if n == 0 {
		r.logger.Warn("status callback matched no message",
			slog.String("external_id", u.ExternalMessageID),
			slog.String("status", string(status)),
		)
	}
	return res, nil
}

// Process validates a raw callback, applies the signature policy, applies the update and
// audits the raw parameters. Every callback carrying params is audited, including ones
// with an unusable status, a rejected signature or no matching message.
func (r *Reconciler) Process(ctx context.Context, cb Callback) (ApplyResult, error) {
	if len(cb.Params) == 0 {
		return ApplyResult{}, fmt.Errorf("%w: empty callback", ErrInvalidInput)
	}
	u := UpdateFromParams(cb.Params)
	log := r.logger.With(slog.String("external_id", u.ExternalMessageID))
	if _, err := validate(u); err != nil {
		// Unusable statuses are still kept for later inspection.
		log.Warn("status callback rejected", slog.String("status", u.Status), slog.Any("error", err))
		r.record(ctx, cb.Params, log)
		return ApplyResult{}, err
	}

	if !r.signatureAccepted(cb, log) {
		r.record(ctx, cb.Params, log)
		return ApplyResult{}, ErrInvalidSignature
	}

	res, err := r.Apply(ctx, u)
	r.record(ctx, cb.Params, log)
	return res, err
}

func (r *Reconciler) signatureAccepted(cb Callback, log *slog.Logger) bool {
	switch r.policy.Mode {
	case SignatureOff:
		return true
	case SignatureEnforce:
		if VerifySignature(r.policy.AuthToken, r.policy.CallbackURL, cb.Params, cb.Signature) {
			return true
		}
		log.Warn("status callback signature rejected")
		return false
	default:
		if r.policy.CallbackURL == "" || r.policy.AuthToken == "" {
			return true
		}
		if !VerifySignature(r.policy.AuthToken, r.policy.CallbackURL, cb.Params, cb.Signature) {
			log.Warn("status callback signature failed verification; continuing")
		}
		return true
	}
}

func (r *Reconciler) record(ctx context.Context, params url.Values, log *slog.Logger) {
	if r.audit == nil {
		return
	}
	if _, err := r.audit.Audit(ctx, AuditSource, flatten(params)); err != nil {
		log.Error("audit status callback failed", slog.Any("error", err))
	}
}

// flatten keeps the first value of each parameter, the shape providers post.
func flatten(params url.Values) map[string]string {
	out := make(map[string]string, len(params))
	for k, v := range params {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
