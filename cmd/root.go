package cmd

import (
	"github.com/spf13/cobra"

	"meeting-ingest/config"
)

func Root(cfg *config.Config) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "meeting-ingest",
		Short:         "sync meeting recordings and generate previews",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(serverCmd(cfg))
	rootCmd.AddCommand(syncCmd(cfg))
	rootCmd.AddCommand(previewCmd(cfg))
	rootCmd.AddCommand(migrateCmd(cfg))
	return rootCmd
}
