package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"meeting-ingest/config"
	"meeting-ingest/repository"
)

func migrateCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(runContext(cfg, false), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return repository.Migrate(ctx, cfg.DB)
		},
	}
}
