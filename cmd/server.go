package cmd

import (
	"github.com/spf13/cobra"

	"meeting-ingest/config"
	"meeting-ingest/server"
)

func serverCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "start http server and job consumer",
		Run: func(cmd *cobra.Command, args []string) {
			server.RunHttp(cfg)
		},
	}
}
