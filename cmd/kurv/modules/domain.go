package modules

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/kurvcrm/kurv/internal/boot"
	"github.com/kurvcrm/kurv/internal/contacts"
	"github.com/kurvcrm/kurv/internal/conversation"
	dbsqlc "github.com/kurvcrm/kurv/internal/db/sqlc"
	"github.com/kurvcrm/kurv/internal/delivery"
	"github.com/kurvcrm/kurv/internal/ingest"
	"github.com/kurvcrm/kurv/internal/ledger"
	"github.com/kurvcrm/kurv/internal/message"
	"github.com/kurvcrm/kurv/internal/outbound"
	"github.com/kurvcrm/kurv/internal/transport"
	"github.com/kurvcrm/kurv/internal/transport/twilio"
)

var DomainModule = fx.Module(
	"domain",
	fx.Provide(
		ledger.NewService,
		contacts.NewService,
		conversation.NewService,
		message.NewService,
		provideIngestPipeline,
		provideOutboundService,
		provideDeliveryReconciler,
	),
)

// ---------------------------------------------------------------------------
// domain providers
// ---------------------------------------------------------------------------

func provideIngestPipeline(log *slog.Logger, ledgerService *ledger.Service, contactService *contacts.Service, conversationService *conversation.Service, messageService *message.Service) *ingest.Pipeline {
	return ingest.NewPipeline(log, ledgerService, contactService, conversationService, messageService)
}

type outboundParams struct {
	fx.In

	Logger        *slog.Logger
	Contacts      *contacts.Service
	Conversations *conversation.Service
	Messages      *message.Service
	Senders       []transport.Sender `group:"transports"`
}

func provideOutboundService(params outboundParams) *outbound.Service {
	return outbound.NewService(params.Logger, params.Contacts, params.Conversations, params.Messages, params.Senders...)
}

func provideDeliveryReconciler(log *slog.Logger, queries dbsqlc.Querier, ledgerService *ledger.Service, rc *boot.RuntimeConfig) *delivery.Reconciler {
	return delivery.NewReconciler(log, queries, ledgerService, twilio.Name, delivery.Policy{
		Mode:        rc.Twilio.StatusSignature,
		AuthToken:   rc.Twilio.AuthToken,
		CallbackURL: rc.StatusCallbackURL,
	})
}
