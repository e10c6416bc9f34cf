package modules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"go.uber.org/fx"

	"github.com/kurvcrm/kurv/internal/boot"
	"github.com/kurvcrm/kurv/internal/contacts"
	"github.com/kurvcrm/kurv/internal/conversation"
	"github.com/kurvcrm/kurv/internal/delivery"
	"github.com/kurvcrm/kurv/internal/handlers"
	"github.com/kurvcrm/kurv/internal/ingest"
	"github.com/kurvcrm/kurv/internal/message"
	"github.com/kurvcrm/kurv/internal/outbound"
	"github.com/kurvcrm/kurv/internal/server"
	"github.com/kurvcrm/kurv/internal/transport/mailgun"
	"github.com/kurvcrm/kurv/internal/version"
)

var ServerModule = fx.Module(
	"server",
	fx.Provide(
		provideServerHandler(providePingHandler),
		provideServerHandler(provideIngestHandler),
		provideServerHandler(provideSendHandler),
		provideServerHandler(provideStatusHandler),
		provideServerHandler(provideConversationsHandler),
		provideServer,
	),
	fx.Invoke(startServer),
)

// ---------------------------------------------------------------------------
// handlers
// ---------------------------------------------------------------------------

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func providePingHandler(log *slog.Logger, conversations *conversation.Service) *handlers.PingHandler {
	return handlers.NewPingHandler(log, conversations)
}

func provideIngestHandler(log *slog.Logger, pipeline *ingest.Pipeline, rc *boot.RuntimeConfig, verifier mailgun.Verifier) *handlers.IngestHandler {
	return handlers.NewIngestHandler(log, pipeline, rc.IngestSecret, verifier)
}

func provideSendHandler(log *slog.Logger, sender *outbound.Service) *handlers.SendHandler {
	return handlers.NewSendHandler(log, sender)
}

func provideStatusHandler(log *slog.Logger, reconciler *delivery.Reconciler) *handlers.StatusHandler {
	return handlers.NewStatusHandler(log, reconciler)
}

func provideConversationsHandler(log *slog.Logger, conversations *conversation.Service, contactService *contacts.Service, messages *message.Service, sender *outbound.Service) *handlers.ConversationsHandler {
	return handlers.NewConversationsHandler(log, conversations, contactService, messages, sender)
}

// ---------------------------------------------------------------------------
// server
// ---------------------------------------------------------------------------

type serverParams struct {
	fx.In

	Logger         *slog.Logger
	RuntimeConfig  *boot.RuntimeConfig
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, server.Options{
		Addr:      params.RuntimeConfig.ServerAddr,
		RateLimit: params.RuntimeConfig.RateLimit,
	}, params.ServerHandlers...)
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	logger.Info("starting kurv", slog.String("version", version.GetInfo()))

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
