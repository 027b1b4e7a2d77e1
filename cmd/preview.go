package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"meeting-ingest/config"
	"meeting-ingest/pkg/openai"
	"meeting-ingest/repository"
	"meeting-ingest/service"
)

func previewCmd(cfg *config.Config) *cobra.Command {
	var (
		recordingID     string
		force           bool
		limit           int
		concurrency     int
		clipConcurrency int
		debug           bool
	)

	c := &cobra.Command{
		Use:   "preview",
		Short: "generate looping preview clips and poster frames",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(runContext(cfg, debug), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			logger := zerolog.Ctx(ctx)

			extractor, err := service.NewFFmpegExtractor(cfg.Preview.ClipSeconds, cfg.Preview.FPS, cfg.Preview.Width, cfg.Preview.Timeout, debug)
			if err != nil {
				return err
			}

			// Zoom download URLs expire, so refreshing them needs credentials.
			// Without them gong recordings still work.
			var zoomAPI service.ZoomAPI
			if zc, err := newZoomClient(cfg); err != nil {
				logger.Warn().Err(err).Msg("zoom previews disabled")
			} else {
				zoomAPI = zc
			}

			var ranker service.CandidateRanker
			if cfg.OpenAI.APIKey != "" {
				ranker = openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
			} else {
				logger.Warn().Msg("openai api key not set, falling back to middle candidate")
			}

			repo := repository.NewRepo(cfg.DB)
			store := service.NewMinioStore(cfg.Storage, cfg.MinIOBucket, cfg.App.Protocol, cfg.App.Host)
			svc := service.NewPreviewService(repo, zoomAPI, extractor, ranker, store, cfg.Preview)

			report, err := svc.GeneratePreviews(ctx, service.PreviewOptions{
				RecordingID:     recordingID,
				Limit:           limit,
				Concurrency:     concurrency,
				ClipConcurrency: clipConcurrency,
				Force:           force,
			})
			if err != nil {
				return err
			}
			report.Log(logger)
			if report.Failed > 0 {
				return fmt.Errorf("%d previews failed", report.Failed)
			}
			return nil
		},
	}

	c.Flags().StringVar(&recordingID, "recording", "", "generate for a single recording id")
	c.Flags().BoolVar(&force, "force", false, "regenerate even when a preview exists")
	c.Flags().IntVar(&limit, "limit", 0, "stop after this many recordings")
	c.Flags().IntVar(&concurrency, "concurrency", 0, "concurrent recordings (default from config)")
	c.Flags().IntVar(&clipConcurrency, "clip-concurrency", 0, "concurrent clip extractions per recording (default from config)")
	c.Flags().BoolVar(&debug, "debug", false, "enable debug logging and ffmpeg output")
	return c
}
