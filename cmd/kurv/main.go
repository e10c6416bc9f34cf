package main

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/kurvcrm/kurv/cmd/kurv/modules"
	schema "github.com/kurvcrm/kurv/db"
	"github.com/kurvcrm/kurv/internal/boot"
	"github.com/kurvcrm/kurv/internal/config"
	"github.com/kurvcrm/kurv/internal/db"
	"github.com/kurvcrm/kurv/internal/logger"
	"github.com/kurvcrm/kurv/internal/version"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "kurv",
	Short:        "kurv - multi-channel inbox for WhatsApp, voice and email",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		newApp(resolveConfigPath(cmd)).Run()
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate <up [steps]|down [steps]|version|force <version>>",
	Short: "Apply or roll back database migrations",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runMigrate,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "kurv %s\n", version.GetInfo())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "Config file (or set CONFIG_PATH)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolveConfigPath prefers an explicit --config over CONFIG_PATH over the default.
func resolveConfigPath(cmd *cobra.Command) string {
	if cmd.Flags().Changed("config") {
		return configPath
	}
	return boot.ConfigPath(configPath)
}

func newApp(path string) *fx.App {
	return fx.New(
		fx.Supply(modules.ConfigPath(path)),
		modules.InfraModule,
		modules.TransportModule,
		modules.DomainModule,
		modules.ServerModule,
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(resolveConfigPath(cmd))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	migrations, err := fs.Sub(schema.MigrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}
	return db.RunMigrate(logger.L, cfg.Postgres, migrations, args[0], args[1:])
}
