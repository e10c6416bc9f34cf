package modules

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"go.uber.org/fx"

	schema "github.com/kurvcrm/kurv/db"
	"github.com/kurvcrm/kurv/internal/boot"
	"github.com/kurvcrm/kurv/internal/config"
	"github.com/kurvcrm/kurv/internal/db"
	"github.com/kurvcrm/kurv/internal/db/memstore"
	dbsqlc "github.com/kurvcrm/kurv/internal/db/sqlc"
	"github.com/kurvcrm/kurv/internal/logger"
)

// ConfigPath is the config file location resolved by the CLI.
type ConfigPath string

var InfraModule = fx.Module(
	"infra",
	fx.Provide(
		provideConfig,
		provideLogger,
		boot.ProvideRuntimeConfig,
		provideStorage,
	),
)

// ---------------------------------------------------------------------------
// infrastructure providers
// ---------------------------------------------------------------------------

func provideConfig(path ConfigPath) (config.Config, error) {
	cfg, err := config.Load(string(path))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

// Storage is the persistence backend selected by storage.driver.
type Storage struct {
	fx.Out

	Queries dbsqlc.Querier
	Locker  db.KeyLocker
}

func provideStorage(lc fx.Lifecycle, log *slog.Logger, cfg config.Config, rc *boot.RuntimeConfig) (Storage, error) {
	if strings.EqualFold(strings.TrimSpace(cfg.Storage.Driver), config.StorageDriverMemory) {
		log.Warn("using in-memory storage; data is lost on restart")
		store := memstore.New()
		var locker db.KeyLocker = db.NoopLocker{Queries: store}
		if rc.SerializeResolution {
			locker = memstore.NewLocker(store)
		}
		return Storage{Queries: store, Locker: locker}, nil
	}

	if cfg.Storage.AutoMigrate {
		migrations, err := fs.Sub(schema.MigrationsFS, "migrations")
		if err != nil {
			return Storage{}, fmt.Errorf("migrations fs: %w", err)
		}
		if err := db.MigrateUp(log, cfg.Postgres, migrations); err != nil {
			return Storage{}, err
		}
	}

	pool, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return Storage{}, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			pool.Close()
			return nil
		},
	})

	queries := dbsqlc.New(pool)
	var locker db.KeyLocker = db.NoopLocker{Queries: queries}
	if rc.SerializeResolution {
		locker = db.NewAdvisoryLocker(log, pool)
	}
	return Storage{Queries: queries, Locker: locker}, nil
}
