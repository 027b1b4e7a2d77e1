package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/rs/zerolog"

	"meeting-ingest/config"
	"meeting-ingest/constant"
	"meeting-ingest/provider/gong"
	"meeting-ingest/provider/zoom"
	"meeting-ingest/service"
)

// runContext builds the logger-carrying context every command runs under.
func runContext(cfg *config.Config, debug bool) context.Context {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug || cfg.App.Environment == constant.EnvironmentDevelop.String() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	return logger.WithContext(context.Background())
}

func newZoomClient(cfg *config.Config) (*zoom.Client, error) {
	if cfg.Zoom.AccountID == "" || cfg.Zoom.ClientID == "" || cfg.Zoom.ClientSecret == "" {
		return nil, errors.New("zoom credentials missing: set zoom.account_id, zoom.client_id and zoom.client_secret")
	}
	return zoom.NewClient(cfg.Zoom.AccountID, cfg.Zoom.ClientID, cfg.Zoom.ClientSecret), nil
}

func newGongClient(cfg *config.Config) (*gong.Client, error) {
	if cfg.Gong.AccessKey == "" || cfg.Gong.SecretKey == "" {
		return nil, errors.New("gong credentials missing: set gong.access_key and gong.secret_key")
	}
	return gong.NewClient(cfg.Gong.AccessKey, cfg.Gong.SecretKey, gong.WithBaseURL(cfg.Gong.BaseURL)), nil
}

// providerClients validates and builds the API clients a sync run needs.
// An empty provider means both, so both sets of credentials must be present.
func providerClients(cfg *config.Config, provider constant.Provider) (service.ZoomAPI, service.GongAPI, error) {
	var (
		zoomAPI service.ZoomAPI
		gongAPI service.GongAPI
	)
	if provider == "" || provider == constant.ProviderZoom {
		c, err := newZoomClient(cfg)
		if err != nil {
			return nil, nil, err
		}
		zoomAPI = c
	}
	if provider == "" || provider == constant.ProviderGong {
		c, err := newGongClient(cfg)
		if err != nil {
			return nil, nil, err
		}
		gongAPI = c
	}
	return zoomAPI, gongAPI, nil
}
