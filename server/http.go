package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"meeting-ingest/config"
	"meeting-ingest/constant"
	jobHandler "meeting-ingest/handler"
	"meeting-ingest/pkg/openai"
	"meeting-ingest/pkg/rabbitmq"
	"meeting-ingest/provider/gong"
	"meeting-ingest/provider/zoom"
	"meeting-ingest/repository"
	"meeting-ingest/service"
)

func RunHttp(cfg *config.Config) {
	ctx, cancel := signal.NotifyContext(setupLogger(cfg), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	logger := zerolog.Ctx(ctx)

	logger.Info().Str("env", cfg.App.Environment).Bool("isProduction", cfg.App.Environment == constant.EnvironmentProduction.String()).Send()
	if cfg.App.Environment == constant.EnvironmentProduction.String() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := repository.Migrate(ctx, cfg.DB); err != nil {
		logger.Fatal().Err(err).Msg("migrate")
	}

	extractor, err := service.NewFFmpegExtractor(cfg.Preview.ClipSeconds, cfg.Preview.FPS, cfg.Preview.Width, cfg.Preview.Timeout, cfg.App.Environment == constant.EnvironmentDevelop.String())
	if err != nil {
		logger.Fatal().Err(err).Msg("extractor setup")
	}

	conn, err := config.NewRabbitMQConn(ctx, cfg.Queue)
	if err != nil {
		logger.Fatal().Err(err).Msg("NewRabbitMQConn")
	}

	var zoomAPI service.ZoomAPI
	if cfg.Zoom.AccountID != "" && cfg.Zoom.ClientID != "" && cfg.Zoom.ClientSecret != "" {
		zoomAPI = zoom.NewClient(cfg.Zoom.AccountID, cfg.Zoom.ClientID, cfg.Zoom.ClientSecret)
	} else {
		logger.Warn().Msg("zoom credentials not set, zoom jobs will fail")
	}
	var gongAPI service.GongAPI
	if cfg.Gong.AccessKey != "" && cfg.Gong.SecretKey != "" {
		gongAPI = gong.NewClient(cfg.Gong.AccessKey, cfg.Gong.SecretKey, gong.WithBaseURL(cfg.Gong.BaseURL))
	} else {
		logger.Warn().Msg("gong credentials not set, gong jobs will fail")
	}
	var ranker service.CandidateRanker
	if cfg.OpenAI.APIKey != "" {
		ranker = openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	}

	repo := repository.NewRepo(cfg.DB)
	store := service.NewMinioStore(cfg.Storage, cfg.MinIOBucket, cfg.App.Protocol, cfg.App.Host)
	syncService := service.NewSyncService(repo, zoomAPI, gongAPI, cfg.Sync)
	previewService := service.NewPreviewService(repo, zoomAPI, extractor, ranker, store, cfg.Preview)

	serviceDeps := jobHandler.ServiceDependencies{
		SyncService:    syncService,
		PreviewService: previewService,
	}

	jobConsumer := rabbitmq.NewConsumer(conn, cfg.Queue, cfg.Server.Workers, jobHandler.JobHandler)
	go func() {
		if err := jobConsumer.Consume(ctx, serviceDeps); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("job consumer error")
		}
	}()

	r := gin.Default()
	addHealth(r)

	handler := http.Server{
		Handler:           r,
		Addr:              fmt.Sprintf(":%s", cfg.Server.HttpPort),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("env", cfg.App.Environment).Msg("start http server")
		if err := handler.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Str("env", cfg.App.Environment).Msg(err.Error())
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := handler.Shutdown(shutdownCtx); err != nil {
		logger.Error().Str("env", cfg.App.Environment).Msg(err.Error())
	}

	logger.Info().Str("env", cfg.App.Environment).Msg("server shutdown")
}

func addHealth(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})
}

func setupLogger(cfg *config.Config) context.Context {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.App.Environment == constant.EnvironmentDevelop.String() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// Log to standard output
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(context.Background())

	return ctx
}
