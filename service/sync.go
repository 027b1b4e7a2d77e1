package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"meeting-ingest/config"
	"meeting-ingest/constant"
	"meeting-ingest/provider/gong"
	"meeting-ingest/provider/zoom"
	"meeting-ingest/repository"
)

// ZoomAPI is the slice of the Zoom client the orchestrators need.
type ZoomAPI interface {
	ListRecordings(ctx context.Context, from, to time.Time, pageToken string) (*zoom.RecordingPage, error)
	GetMeetingRecordings(ctx context.Context, meetingUUID string) (*zoom.MeetingRecordings, error)
	Download(ctx context.Context, downloadURL, accessToken string) ([]byte, error)
}

// GongAPI is the slice of the Gong client the orchestrators need.
type GongAPI interface {
	ListCalls(ctx context.Context, from, to time.Time, cursor string) (*gong.CallPage, error)
	GetTranscripts(ctx context.Context, callIDs []string) ([]gong.CallTranscript, error)
}

type SyncOptions struct {
	Force       bool
	Provider    constant.Provider // empty means both
	Limit       int
	Concurrency int
	ZoomYears   int
	GongMonths  int
}

type SyncService interface {
	Sync(ctx context.Context, opts SyncOptions) (*SyncReport, error)
}

type syncService struct {
	repo repository.RecordingRepository
	zoom ZoomAPI
	gong GongAPI
	cfg  config.Sync
}

func NewSyncService(repo repository.RecordingRepository, zoomAPI ZoomAPI, gongAPI GongAPI, cfg config.Sync) SyncService {
	return &syncService{
		repo: repo,
		zoom: zoomAPI,
		gong: gongAPI,
		cfg:  cfg,
	}
}

// Sync brings the store up to date for the requested providers. Each
// provider's run is independent; one provider failing does not stop the
// other. The merged report carries counts and phase timings for both.
func (s *syncService) Sync(ctx context.Context, opts SyncOptions) (*SyncReport, error) {
	if opts.Concurrency < 1 {
		opts.Concurrency = s.cfg.Concurrency
	}
	if opts.ZoomYears < 1 {
		opts.ZoomYears = s.cfg.ZoomYears
	}
	if opts.GongMonths < 1 {
		opts.GongMonths = s.cfg.GongMonths
	}

	merged := newSyncReport(opts.Provider)
	var errs []error
	if opts.Provider == "" || opts.Provider == constant.ProviderZoom {
		report, err := s.syncZoom(ctx, opts)
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("zoom sync failed")
			errs = append(errs, fmt.Errorf("zoom: %w", err))
		}
		merged.Merge(report)
	}
	if opts.Provider == "" || opts.Provider == constant.ProviderGong {
		report, err := s.syncGong(ctx, opts)
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("gong sync failed")
			errs = append(errs, fmt.Errorf("gong: %w", err))
		}
		merged.Merge(report)
	}
	return merged, errors.Join(errs...)
}

type window struct {
	from time.Time
	to   time.Time
}

// splitWindow cuts [from, to) into consecutive sub-ranges of at most step.
// Listing APIs only accept bounded date ranges; the sub-ranges run in
// parallel while pagination inside each stays sequential.
func splitWindow(from, to time.Time, step time.Duration) []window {
	var windows []window
	for cur := from; cur.Before(to); cur = cur.Add(step) {
		end := cur.Add(step)
		if end.After(to) {
			end = to
		}
		windows = append(windows, window{from: cur, to: end})
	}
	return windows
}

// freshIDs returns the set of recording IDs synced within the freshness
// window. Fresh recordings are skipped without any network call unless the
// run is forced.
func (s *syncService) freshIDs(ctx context.Context, ids []string, force bool) (map[string]bool, error) {
	fresh := make(map[string]bool)
	if force || len(ids) == 0 {
		return fresh, nil
	}
	freshness := s.cfg.Freshness
	if freshness <= 0 {
		freshness = time.Hour
	}
	syncTimes, err := s.repo.LastSyncTimes(ctx, ids)
	if err != nil {
		return nil, err
	}
	cutoff := time.Now().Add(-freshness)
	for id, syncedAt := range syncTimes {
		if syncedAt.After(cutoff) {
			fresh[id] = true
		}
	}
	return fresh, nil
}
