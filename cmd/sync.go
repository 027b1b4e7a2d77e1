package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"meeting-ingest/config"
	"meeting-ingest/constant"
	"meeting-ingest/repository"
	"meeting-ingest/service"
)

func syncCmd(cfg *config.Config) *cobra.Command {
	var (
		provider    string
		force       bool
		limit       int
		concurrency int
		zoomYears   int
		gongMonths  int
		debug       bool
	)

	c := &cobra.Command{
		Use:   "sync",
		Short: "pull recordings, transcripts and chat from the configured providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(runContext(cfg, debug), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			p := constant.Provider(provider)
			if provider != "" && p != constant.ProviderZoom && p != constant.ProviderGong {
				return fmt.Errorf("unknown provider %q", provider)
			}

			zoomAPI, gongAPI, err := providerClients(cfg, p)
			if err != nil {
				return err
			}

			repo := repository.NewRepo(cfg.DB)
			svc := service.NewSyncService(repo, zoomAPI, gongAPI, cfg.Sync)
			report, err := svc.Sync(ctx, service.SyncOptions{
				Force:       force,
				Provider:    p,
				Limit:       limit,
				Concurrency: concurrency,
				ZoomYears:   zoomYears,
				GongMonths:  gongMonths,
			})
			if report != nil {
				report.Log(zerolog.Ctx(ctx))
			}
			if err != nil {
				return err
			}
			if report.Failed > 0 {
				return fmt.Errorf("%d recordings failed to sync", report.Failed)
			}
			return nil
		},
	}

	c.Flags().StringVar(&provider, "provider", "", "sync a single provider (zoom or gong)")
	c.Flags().BoolVar(&force, "force", false, "re-sync recordings even when fresh")
	c.Flags().IntVar(&limit, "limit", 0, "stop after this many recordings per provider")
	c.Flags().IntVar(&concurrency, "concurrency", 0, "per-recording workers (default from config)")
	c.Flags().IntVar(&zoomYears, "zoom-years", 0, "how many years of zoom history to cover")
	c.Flags().IntVar(&gongMonths, "gong-months", 0, "how many months of gong history to cover")
	c.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	return c
}
