package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"meeting-ingest/constant"
	"meeting-ingest/entities"
	"meeting-ingest/pkg/pool"
	"meeting-ingest/provider/zoom"
)

func zoomRecordingID(meetingUUID string) string {
	return "zoom_" + meetingUUID
}

func (s *syncService) syncZoom(ctx context.Context, opts SyncOptions) (*SyncReport, error) {
	report := newSyncReport(constant.ProviderZoom)
	now := time.Now()
	from := now.AddDate(-opts.ZoomYears, 0, 0)

	// List phase: sub-ranges in parallel, pagination sequential inside each.
	listStart := time.Now()
	windows := splitWindow(from, now, zoom.MaxWindowDays*24*time.Hour)
	listed := pool.Map(ctx, windows, opts.Concurrency, func(ctx context.Context, _ int, w window) ([]zoom.Meeting, error) {
		return s.listZoomWindow(ctx, w)
	})
	var meetings []zoom.Meeting
	var listErrs []error
	for i, res := range listed {
		if res.Err != nil {
			zerolog.Ctx(ctx).Warn().Err(res.Err).
				Str("from", windows[i].from.Format("2006-01-02")).
				Str("to", windows[i].to.Format("2006-01-02")).
				Msg("zoom window listing failed")
			listErrs = append(listErrs, res.Err)
			continue
		}
		meetings = append(meetings, res.Value...)
	}
	// a few bad windows leave a partial run; every window failing means the
	// provider itself is unreachable (bad credentials, outage)
	if len(windows) > 0 && len(listErrs) == len(windows) {
		return report, fmt.Errorf("all %d listing windows failed: %w", len(windows), errors.Join(listErrs...))
	}
	if opts.Limit > 0 && len(meetings) > opts.Limit {
		meetings = meetings[:opts.Limit]
	}
	report.Phases["list"] = time.Since(listStart)

	// Freshness filter, one query for the whole batch.
	ids := make([]string, len(meetings))
	for i, m := range meetings {
		ids[i] = zoomRecordingID(m.UUID)
	}
	fresh, err := s.freshIDs(ctx, ids, opts.Force)
	if err != nil {
		return report, err
	}
	var stale []zoom.Meeting
	for _, m := range meetings {
		if fresh[zoomRecordingID(m.UUID)] {
			report.add(Outcome{RecordingID: zoomRecordingID(m.UUID), Status: constant.SyncStatusSkipped, Reason: "fresh"})
			continue
		}
		stale = append(stale, m)
	}

	// Per-recording fetch/transform/write. A failure on one recording is
	// recorded and the rest of the batch keeps going.
	syncStart := time.Now()
	results := pool.Map(ctx, stale, opts.Concurrency, func(ctx context.Context, _ int, m zoom.Meeting) (Outcome, error) {
		return s.syncZoomMeeting(ctx, m)
	})
	for i, res := range results {
		if res.Err != nil {
			report.add(Outcome{RecordingID: zoomRecordingID(stale[i].UUID), Status: constant.SyncStatusFailed, Reason: res.Err.Error()})
			continue
		}
		report.add(res.Value)
	}
	report.Phases["sync"] = time.Since(syncStart)
	return report, nil
}

func (s *syncService) listZoomWindow(ctx context.Context, w window) ([]zoom.Meeting, error) {
	var meetings []zoom.Meeting
	pageToken := ""
	for {
		page, err := s.zoom.ListRecordings(ctx, w.from, w.to, pageToken)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, page.Meetings...)
		if page.NextPageToken == "" {
			return meetings, nil
		}
		pageToken = page.NextPageToken
	}
}

func (s *syncService) syncZoomMeeting(ctx context.Context, m zoom.Meeting) (Outcome, error) {
	id := zoomRecordingID(m.UUID)

	detail, err := s.zoom.GetMeetingRecordings(ctx, m.UUID)
	if err != nil {
		return Outcome{}, fmt.Errorf("meeting detail: %w", err)
	}

	media, kind := pickZoomMedia(detail.RecordingFiles)
	if media == nil {
		return Outcome{RecordingID: id, Status: constant.SyncStatusSkipped, Reason: "no usable media"}, nil
	}

	// Transcript and chat are independent downloads; they only wait on the
	// detail call that carries the download token.
	transcriptFile := findZoomFile(detail.RecordingFiles, "TRANSCRIPT")
	chatFile := findZoomFile(detail.RecordingFiles, "CHAT")

	type download struct {
		data []byte
		err  error
	}
	transcriptCh := make(chan download, 1)
	chatCh := make(chan download, 1)
	go func() {
		if transcriptFile == nil {
			transcriptCh <- download{}
			return
		}
		data, err := s.zoom.Download(ctx, transcriptFile.DownloadURL, detail.DownloadAccessToken)
		transcriptCh <- download{data: data, err: err}
	}()
	go func() {
		if chatFile == nil {
			chatCh <- download{}
			return
		}
		data, err := s.zoom.Download(ctx, chatFile.DownloadURL, detail.DownloadAccessToken)
		chatCh <- download{data: data, err: err}
	}()
	transcript := <-transcriptCh
	chat := <-chatCh

	var segments []*entities.TranscriptSegment
	if transcript.err != nil {
		zerolog.Ctx(ctx).Warn().Err(transcript.err).Str("recording_id", id).Msg("transcript download failed")
	} else if len(transcript.data) > 0 {
		segments, err = ParseTranscript(transcript.data, nil)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("recording_id", id).Msg("transcript unusable")
			segments = nil
		}
	}

	var messages []*entities.ChatMessage
	if chat.err != nil {
		zerolog.Ctx(ctx).Warn().Err(chat.err).Str("recording_id", id).Msg("chat download failed")
	} else if len(chat.data) > 0 {
		messages = ParseChat(chat.data, detail.StartTime)
	}

	now := time.Now()
	expiry := now.Add(zoom.DownloadTokenTTL * time.Second)
	rec := &entities.Recording{
		ID:              id,
		Provider:        constant.ProviderZoom,
		Title:           detail.Topic,
		VideoURL:        zoom.MediaURL(*media, detail.DownloadAccessToken),
		MediaKind:       kind,
		DurationSeconds: float64(detail.Duration) * 60,
		URLExpiresAt:    &expiry,
		StartedAt:       detail.StartTime,
		LastSyncedAt:    &now,
	}
	if err := s.repo.UpsertRecording(ctx, rec); err != nil {
		return Outcome{}, fmt.Errorf("upsert recording: %w", err)
	}

	for i := range segments {
		segments[i].RecordingID = id
	}
	speakers := DeriveSpeakers(segments)
	for i := range speakers {
		speakers[i].RecordingID = id
	}
	for i := range messages {
		messages[i].RecordingID = id
	}
	var files []*entities.VideoFile
	for _, f := range detail.RecordingFiles {
		if f.FileType != "MP4" && f.FileType != "M4A" {
			continue
		}
		files = append(files, &entities.VideoFile{
			RecordingID: id,
			ViewType:    f.RecordingType,
			FileType:    f.FileType,
			URL:         f.DownloadURL,
		})
	}

	if err := s.repo.ReplaceSegments(ctx, id, segments); err != nil {
		return Outcome{}, fmt.Errorf("replace segments: %w", err)
	}
	if err := s.repo.ReplaceSpeakers(ctx, id, speakers); err != nil {
		return Outcome{}, fmt.Errorf("replace speakers: %w", err)
	}
	if err := s.repo.ReplaceVideoFiles(ctx, id, files); err != nil {
		return Outcome{}, fmt.Errorf("replace video files: %w", err)
	}
	if err := s.repo.ReplaceChatMessages(ctx, id, messages); err != nil {
		return Outcome{}, fmt.Errorf("replace chat messages: %w", err)
	}

	return Outcome{RecordingID: id, Status: constant.SyncStatusSynced}, nil
}

// pickZoomMedia chooses the canonical media file: the speaker-view MP4 when
// present, any MP4 otherwise, the M4A audio as a last resort.
func pickZoomMedia(files []zoom.RecordingFile) (*zoom.RecordingFile, constant.MediaKind) {
	var anyVideo, audio *zoom.RecordingFile
	for i := range files {
		f := &files[i]
		if f.Status != "" && f.Status != "completed" {
			continue
		}
		switch f.FileType {
		case "MP4":
			if f.RecordingType == "shared_screen_with_speaker_view" {
				return f, constant.MediaKindVideo
			}
			if anyVideo == nil {
				anyVideo = f
			}
		case "M4A":
			if audio == nil {
				audio = f
			}
		}
	}
	if anyVideo != nil {
		return anyVideo, constant.MediaKindVideo
	}
	if audio != nil {
		return audio, constant.MediaKindAudio
	}
	return nil, ""
}

func findZoomFile(files []zoom.RecordingFile, fileType string) *zoom.RecordingFile {
	for i := range files {
		if files[i].FileType == fileType {
			return &files[i]
		}
	}
	return nil
}
