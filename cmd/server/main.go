// Command server runs the gophhabits API.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophhabits/internal/common"
	"github.com/dmitrijs2005/gophhabits/internal/logging"
	"github.com/dmitrijs2005/gophhabits/internal/server"
	"github.com/dmitrijs2005/gophhabits/internal/server/config"
	"github.com/spf13/cobra"

	_ "time/tzdata"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "gophhabits",
		Short:        "Habit tracker server",
		Long:         "gophhabits serves the habits HTTP API, a gRPC health endpoint and optional S3 backups.",
		Version:      common.Version,
		SilenceUsage: true,
		RunE:         runServe,
	}

	config.BindFlags(root.PersistentFlags())

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the API server (default)",
		RunE:  runServe,
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE:  runMigrate,
	})
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), common.AppName, common.Version)
		},
	})

	return root
}

// setup loads the configuration and builds the logger.
func setup(cmd *cobra.Command) (*config.Config, *logging.ZapLogger, error) {
	cfg, err := config.LoadConfig(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.NewZapLogger(logging.Options{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	if err != nil {
		return nil, nil, err
	}

	return cfg, logger, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	if cfg.MigrateOnStart {
		if err := app.Migrate(ctx); err != nil {
			return err
		}
	}

	app.Run(ctx)
	return nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	return app.Migrate(ctx)
}
