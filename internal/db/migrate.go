package db

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/kurvcrm/kurv/internal/config"
)

// SchemaAction is one kurv migrate subcommand.
type SchemaAction string

const (
	SchemaUp      SchemaAction = "up"
	SchemaDown    SchemaAction = "down"
	SchemaVersion SchemaAction = "version"
	SchemaForce   SchemaAction = "force"
)

// SchemaCommand is a parsed `kurv migrate` invocation. Steps limits up/down to that many
// migrations when positive; Target is the version force records.
type SchemaCommand struct {
	Action SchemaAction
	Steps  int
	Target int
}

// ParseSchemaCommand reads `<up|down> [steps]`, `version` or `force <version>`.
func ParseSchemaCommand(action string, args []string) (SchemaCommand, error) {
	cmd := SchemaCommand{Action: SchemaAction(strings.ToLower(strings.TrimSpace(action)))}
	switch cmd.Action {
	case SchemaUp, SchemaDown:
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return SchemaCommand{}, fmt.Errorf("%s steps must be a positive integer, got %q", cmd.Action, args[0])
			}
			cmd.Steps = n
		}
	case SchemaVersion:
	case SchemaForce:
		if len(args) == 0 {
			return SchemaCommand{}, errors.New("force needs the schema version to record")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return SchemaCommand{}, fmt.Errorf("force version %q: %w", args[0], err)
		}
		cmd.Target = n
	default:
		return SchemaCommand{}, fmt.Errorf("unknown migrate action %q (want up, down, version or force)", action)
	}
	return cmd, nil
}

// MigrateUp brings the contact store schema to the latest version. serve calls it when
// storage.auto_migrate is set.
func MigrateUp(logger *slog.Logger, cfg config.PostgresConfig, migrationsFS fs.FS) error {
	return RunMigrate(logger, cfg, migrationsFS, string(SchemaUp), nil)
}

// RunMigrate executes a `kurv migrate` action against the configured database.
// migrationsFS holds the numbered .sql files at its root.
func RunMigrate(logger *slog.Logger, cfg config.PostgresConfig, migrationsFS fs.FS, action string, args []string) error {
	cmd, err := ParseSchemaCommand(action, args)
	if err != nil {
		return err
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With(slog.String("component", "schema"), slog.String("action", string(cmd.Action)))

	src, err := iofs.New(migrationsFS, ".")
	if err != nil {
		return fmt.Errorf("open embedded schema: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, DSN(cfg))
	if err != nil {
		return fmt.Errorf("connect schema migrator to %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Database, err)
	}
	defer m.Close()
	m.Log = schemaLog{logger: log}

	if err := applySchemaCommand(m, cmd); err != nil {
		return err
	}

	ver, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		log.Info("schema is empty")
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	default:
		log.Info("schema ready", slog.Uint64("schema_version", uint64(ver)), slog.Bool("dirty", dirty))
	}
	return nil
}

func applySchemaCommand(m *migrate.Migrate, cmd SchemaCommand) error {
	var err error
	switch cmd.Action {
	case SchemaUp:
		if cmd.Steps > 0 {
			err = m.Steps(cmd.Steps)
		} else {
			err = m.Up()
		}
	case SchemaDown:
		if cmd.Steps > 0 {
			err = m.Steps(-cmd.Steps)
		} else {
			err = m.Down()
		}
	case SchemaForce:
		err = m.Force(cmd.Target)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("schema %s: %w", cmd.Action, err)
	}
	return nil
}

// schemaLog forwards golang-migrate progress lines to slog.
type schemaLog struct {
	logger *slog.Logger
}

func (l schemaLog) Printf(format string, v ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (schemaLog) Verbose() bool { return false }
