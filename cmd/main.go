package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/alextanhongpin/podreport"
	"github.com/alextanhongpin/podreport/pkg/config"
)

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		log := podreport.DefaultLogger()
		log.Err(err).Msg("podreport failed")
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "podreport",
		Short:         "Scheduled YouTube podcast performance reports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "path to a YAML config file (env PODREPORT_* always applies)")
	root.AddCommand(serveCmd(), migrateCmd(), versionCmd())

	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "podreport %s\n", podreport.Version)
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the report scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := load(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := podreport.New(ctx, cfg, logger)
			if err != nil {
				return err
			}

			return app.Run(ctx)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema or indexes and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := load(cmd)
			if err != nil {
				return err
			}

			stores, err := podreport.OpenStores(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}

			logger.Info().Str("database", cfg.Database.Driver).Msg("schema is up to date")

			return stores.Close()
		},
	}
}

func load(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	logger, err := podreport.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	return cfg, logger, nil
}
