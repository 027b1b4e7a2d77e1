package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"meeting-ingest/config"
	"meeting-ingest/constant"
	"meeting-ingest/entities"
	"meeting-ingest/pkg/pool"
	"meeting-ingest/pkg/retry"
	"meeting-ingest/provider/zoom"
	"meeting-ingest/repository"
)

type PreviewOptions struct {
	RecordingID     string // generate for one recording instead of scanning
	Limit           int
	Concurrency     int
	ClipConcurrency int
	Force           bool
}

type PreviewService interface {
	GeneratePreviews(ctx context.Context, opts PreviewOptions) (*PreviewReport, error)
}

type previewService struct {
	repo      repository.RecordingRepository
	zoom      ZoomAPI
	extractor ClipExtractor
	ranker    CandidateRanker
	store     ArtifactStore
	cfg       config.Preview
	workDir   string
}

func NewPreviewService(repo repository.RecordingRepository, zoomAPI ZoomAPI, extractor ClipExtractor, ranker CandidateRanker, store ArtifactStore, cfg config.Preview) PreviewService {
	return &previewService{
		repo:      repo,
		zoom:      zoomAPI,
		extractor: extractor,
		ranker:    ranker,
		store:     store,
		cfg:       cfg,
		workDir:   filepath.Join("temp", "previews"),
	}
}

// GeneratePreviews derives a looping clip and a poster frame for every
// eligible recording. Recordings run through an outer pool, candidate clips
// per recording through an inner one, so up to
// Concurrency x ClipConcurrency transcoder subprocesses may be alive at
// once.
func (s *previewService) GeneratePreviews(ctx context.Context, opts PreviewOptions) (*PreviewReport, error) {
	start := time.Now()
	if opts.Concurrency < 1 {
		opts.Concurrency = s.cfg.Concurrency
	}
	if opts.ClipConcurrency < 1 {
		opts.ClipConcurrency = s.cfg.ClipConcurrency
	}

	var recs []*entities.Recording
	if opts.RecordingID != "" {
		rec, err := s.repo.FindRecording(ctx, opts.RecordingID)
		if err != nil {
			return nil, err
		}
		recs = []*entities.Recording{rec}
	} else {
		var err error
		recs, err = s.repo.ListPreviewCandidates(ctx, s.cfg.MinDurationSeconds, opts.Limit, opts.Force)
		if err != nil {
			return nil, err
		}
	}

	report := &PreviewReport{}
	results := pool.Map(ctx, recs, opts.Concurrency, func(ctx context.Context, _ int, rec *entities.Recording) (Outcome, error) {
		return s.previewOne(ctx, rec, opts)
	})
	for i, res := range results {
		if res.Err != nil {
			report.add(Outcome{RecordingID: recs[i].ID, Status: constant.SyncStatusFailed, Reason: res.Err.Error()})
			continue
		}
		report.add(res.Value)
	}
	report.Elapsed = time.Since(start)
	return report, nil
}

type candidate struct {
	clipPath   string
	posterPath string
}

func (s *previewService) previewOne(ctx context.Context, rec *entities.Recording, opts PreviewOptions) (Outcome, error) {
	if rec.MediaKind != constant.MediaKindVideo {
		return Outcome{RecordingID: rec.ID, Status: constant.SyncStatusSkipped, Reason: "not a video"}, nil
	}
	if rec.DurationSeconds < s.cfg.MinDurationSeconds {
		return Outcome{RecordingID: rec.ID, Status: constant.SyncStatusSkipped, Reason: "too short"}, nil
	}
	if rec.PreviewURL != nil && !opts.Force {
		return Outcome{RecordingID: rec.ID, Status: constant.SyncStatusSkipped, Reason: "preview exists"}, nil
	}

	dir := filepath.Join(s.workDir, safePathComponent(rec.ID))
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return Outcome{}, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	timestamps := CandidateTimestamps(rec.DurationSeconds, s.cfg.CandidateCount)
	results := pool.Map(ctx, timestamps, opts.ClipConcurrency, func(ctx context.Context, i int, offset float64) (candidate, error) {
		return s.extractCandidate(ctx, rec, offset, dir, i)
	})

	var candidates []candidate
	for i, res := range results {
		if res.Err != nil {
			zerolog.Ctx(ctx).Warn().Err(res.Err).
				Str("recording_id", rec.ID).
				Float64("offset", timestamps[i]).
				Msg("candidate extraction failed")
			continue
		}
		candidates = append(candidates, res.Value)
	}
	if len(candidates) == 0 {
		if err := s.repo.MarkPreviewFailed(ctx, rec.ID); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("recording_id", rec.ID).Msg("failed to mark preview failure")
		}
		return Outcome{RecordingID: rec.ID, Status: constant.SyncStatusFailed, Reason: "all candidates failed"}, nil
	}

	images := make([][]byte, len(candidates))
	for i, c := range candidates {
		data, err := os.ReadFile(c.posterPath)
		if err != nil {
			return Outcome{}, fmt.Errorf("read poster frame: %w", err)
		}
		images[i] = data
	}
	winner := candidates[ChooseCandidate(ctx, s.ranker, images)]

	previewURL, err := s.store.UploadFile(ctx, "previews/"+safePathComponent(rec.ID)+"/preview.mp4", winner.clipPath, "video/mp4")
	if err != nil {
		return Outcome{}, err
	}
	posterURL, err := s.store.UploadFile(ctx, "previews/"+safePathComponent(rec.ID)+"/poster.jpg", winner.posterPath, "image/jpeg")
	if err != nil {
		return Outcome{}, err
	}
	if err := s.repo.SetPreviewArtifacts(ctx, rec.ID, previewURL, posterURL); err != nil {
		return Outcome{}, fmt.Errorf("persist preview urls: %w", err)
	}
	zerolog.Ctx(ctx).Info().
		Str("recording_id", rec.ID).
		Str("title", rec.DisplayTitle()).
		Str("preview_url", previewURL).
		Msg("preview generated")
	return Outcome{RecordingID: rec.ID, Status: constant.SyncStatusSynced}, nil
}

// extractCandidate runs one clip extraction, retrying exactly once on any
// failure. Zoom media URLs are not trusted to survive concurrent range
// reads, so every attempt fetches its own fresh URL for that provider.
func (s *previewService) extractCandidate(ctx context.Context, rec *entities.Recording, offset float64, dir string, index int) (candidate, error) {
	clipPath := filepath.Join(dir, fmt.Sprintf("candidate_%02d.mp4", index))
	posterPath := filepath.Join(dir, fmt.Sprintf("candidate_%02d.jpg", index))

	policy := retry.Policy{MaxAttempts: 2}
	err := policy.Do(ctx, func(ctx context.Context) error {
		mediaURL, err := s.mediaURL(ctx, rec)
		if err != nil {
			return err
		}
		return s.extractor.ExtractClip(ctx, mediaURL, offset, clipPath)
	})
	if err != nil {
		return candidate{}, err
	}
	if err := s.extractor.ExtractPoster(ctx, clipPath, posterPath); err != nil {
		return candidate{}, fmt.Errorf("poster frame: %w", err)
	}
	return candidate{clipPath: clipPath, posterPath: posterPath}, nil
}

func (s *previewService) mediaURL(ctx context.Context, rec *entities.Recording) (string, error) {
	if rec.Provider != constant.ProviderZoom {
		// Gong URLs are plain signed HTTPS and reusable across concurrent
		// readers.
		return rec.VideoURL, nil
	}
	if s.zoom == nil {
		return "", fmt.Errorf("zoom client not configured, cannot refresh url for %s", rec.ID)
	}
	meetingUUID := strings.TrimPrefix(rec.ID, "zoom_")
	detail, err := s.zoom.GetMeetingRecordings(ctx, meetingUUID)
	if err != nil {
		return "", fmt.Errorf("fresh media url: %w", err)
	}
	media, kind := pickZoomMedia(detail.RecordingFiles)
	if media == nil || kind != constant.MediaKindVideo {
		return "", fmt.Errorf("no video file on meeting %s", meetingUUID)
	}
	return zoom.MediaURL(*media, detail.DownloadAccessToken), nil
}

// CandidateTimestamps spreads count starting points evenly across the
// middle 80% of the duration, keeping clear of slates at the start and
// goodbyes at the end. Values are strictly increasing and always inside
// (0.1*duration, 0.9*duration).
func CandidateTimestamps(durationSeconds float64, count int) []float64 {
	if count < 1 || durationSeconds <= 0 {
		return nil
	}
	lo := 0.1 * durationSeconds
	hi := 0.9 * durationSeconds
	step := (hi - lo) / float64(count+1)
	out := make([]float64, count)
	for i := 0; i < count; i++ {
		out[i] = lo + step*float64(i+1)
	}
	return out
}

func safePathComponent(id string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", "=", "_", "+", "-")
	return replacer.Replace(id)
}
