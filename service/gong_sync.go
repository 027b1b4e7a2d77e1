package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"meeting-ingest/constant"
	"meeting-ingest/entities"
	"meeting-ingest/pkg/pool"
	"meeting-ingest/pkg/retry"
	"meeting-ingest/provider/gong"
)

const (
	transcriptBatchSize     = 50
	transcriptBatchAttempts = 3
)

func gongRecordingID(callID string) string {
	return "gong_" + callID
}

func (s *syncService) syncGong(ctx context.Context, opts SyncOptions) (*SyncReport, error) {
	report := newSyncReport(constant.ProviderGong)
	now := time.Now()
	from := now.AddDate(0, -opts.GongMonths, 0)

	listStart := time.Now()
	windows := splitWindow(from, now, gong.MaxWindowDays*24*time.Hour)
	listed := pool.Map(ctx, windows, opts.Concurrency, func(ctx context.Context, _ int, w window) ([]gong.Call, error) {
		return s.listGongWindow(ctx, w)
	})
	var calls []gong.Call
	var listErrs []error
	for i, res := range listed {
		if res.Err != nil {
			zerolog.Ctx(ctx).Warn().Err(res.Err).
				Str("from", windows[i].from.Format("2006-01-02")).
				Str("to", windows[i].to.Format("2006-01-02")).
				Msg("gong window listing failed")
			listErrs = append(listErrs, res.Err)
			continue
		}
		calls = append(calls, res.Value...)
	}
	if len(windows) > 0 && len(listErrs) == len(windows) {
		return report, fmt.Errorf("all %d listing windows failed: %w", len(windows), errors.Join(listErrs...))
	}
	if opts.Limit > 0 && len(calls) > opts.Limit {
		calls = calls[:opts.Limit]
	}
	report.Phases["list"] = time.Since(listStart)

	ids := make([]string, len(calls))
	for i, c := range calls {
		ids[i] = gongRecordingID(c.MetaData.ID)
	}
	fresh, err := s.freshIDs(ctx, ids, opts.Force)
	if err != nil {
		return report, err
	}
	var stale []gong.Call
	for _, c := range calls {
		if fresh[gongRecordingID(c.MetaData.ID)] {
			report.add(Outcome{RecordingID: gongRecordingID(c.MetaData.ID), Status: constant.SyncStatusSkipped, Reason: "fresh"})
			continue
		}
		stale = append(stale, c)
	}

	// Transcripts come from a quota-limited batch endpoint, so they are
	// pulled up front for the whole stale set and joined by call ID.
	transcriptStart := time.Now()
	callIDs := make([]string, len(stale))
	for i, c := range stale {
		callIDs[i] = c.MetaData.ID
	}
	transcripts := s.fetchTranscriptBatches(ctx, callIDs)
	report.Phases["transcripts"] = time.Since(transcriptStart)

	syncStart := time.Now()
	results := pool.Map(ctx, stale, opts.Concurrency, func(ctx context.Context, _ int, c gong.Call) (Outcome, error) {
		return s.syncGongCall(ctx, c, transcripts[c.MetaData.ID])
	})
	for i, res := range results {
		if res.Err != nil {
			report.add(Outcome{RecordingID: gongRecordingID(stale[i].MetaData.ID), Status: constant.SyncStatusFailed, Reason: res.Err.Error()})
			continue
		}
		report.add(res.Value)
	}
	report.Phases["sync"] = time.Since(syncStart)
	return report, nil
}

func (s *syncService) listGongWindow(ctx context.Context, w window) ([]gong.Call, error) {
	var calls []gong.Call
	cursor := ""
	for {
		page, err := s.gong.ListCalls(ctx, w.from, w.to, cursor)
		if err != nil {
			return nil, err
		}
		calls = append(calls, page.Calls...)
		if page.Records.Cursor == "" {
			return calls, nil
		}
		cursor = page.Records.Cursor
	}
}

// fetchTranscriptBatches chunks call IDs into fixed-size batches and fetches
// them with bounded concurrency. A rate-limited batch sleeps for the
// server-provided delay and retries up to transcriptBatchAttempts; an
// exhausted or otherwise failed batch is abandoned and its transcripts are
// simply missing from the result. Missing keys mean "no transcript", never
// an error.
func (s *syncService) fetchTranscriptBatches(ctx context.Context, callIDs []string) map[string]gong.CallTranscript {
	batchConcurrency := s.cfg.BatchConcurrency
	if batchConcurrency < 1 {
		batchConcurrency = 2
	}

	var batches [][]string
	for start := 0; start < len(callIDs); start += transcriptBatchSize {
		end := min(start+transcriptBatchSize, len(callIDs))
		batches = append(batches, callIDs[start:end])
	}

	policy := retry.Policy{
		MaxAttempts: transcriptBatchAttempts,
		Retryable: func(err error) bool {
			var rle *gong.RateLimitError
			return errors.As(err, &rle)
		},
		Delay: func(_ int, err error) time.Duration {
			var rle *gong.RateLimitError
			if errors.As(err, &rle) {
				return rle.RetryAfter
			}
			return 0
		},
	}

	results := pool.Map(ctx, batches, batchConcurrency, func(ctx context.Context, i int, batch []string) ([]gong.CallTranscript, error) {
		var transcripts []gong.CallTranscript
		err := policy.Do(ctx, func(ctx context.Context) error {
			var callErr error
			transcripts, callErr = s.gong.GetTranscripts(ctx, batch)
			return callErr
		})
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Int("batch", i).Int("size", len(batch)).Msg("transcript batch abandoned")
			return nil, nil
		}
		return transcripts, nil
	})

	merged := make(map[string]gong.CallTranscript)
	for _, res := range results {
		for _, t := range res.Value {
			merged[t.CallID] = t
		}
	}
	return merged
}

func (s *syncService) syncGongCall(ctx context.Context, c gong.Call, transcript gong.CallTranscript) (Outcome, error) {
	id := gongRecordingID(c.MetaData.ID)

	mediaURL := c.Media.VideoURL
	kind := constant.MediaKindVideo
	if mediaURL == "" {
		mediaURL = c.Media.AudioURL
		kind = constant.MediaKindAudio
	}
	if mediaURL == "" {
		return Outcome{RecordingID: id, Status: constant.SyncStatusSkipped, Reason: "no usable media"}, nil
	}

	speakerNames := make(map[string]string, len(c.Parties))
	for _, p := range c.Parties {
		speakerNames[p.SpeakerID] = p.Name
	}
	segments := gongSegments(transcript, speakerNames)

	now := time.Now()
	rec := &entities.Recording{
		ID:              id,
		Provider:        constant.ProviderGong,
		Title:           c.MetaData.Title,
		Description:     c.MetaData.URL,
		VideoURL:        mediaURL,
		MediaKind:       kind,
		DurationSeconds: c.MetaData.Duration,
		StartedAt:       c.MetaData.Started,
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
	var participants []*entities.Participant
	for _, p := range c.Parties {
		if p.Name == "" {
			continue
		}
		participants = append(participants, &entities.Participant{
			RecordingID: id,
			Name:        p.Name,
			Email:       p.EmailAddress,
			Affiliation: p.Affiliation,
		})
	}

	if err := s.repo.ReplaceSegments(ctx, id, segments); err != nil {
		return Outcome{}, fmt.Errorf("replace segments: %w", err)
	}
	if err := s.repo.ReplaceSpeakers(ctx, id, speakers); err != nil {
		return Outcome{}, fmt.Errorf("replace speakers: %w", err)
	}
	if err := s.repo.ReplaceParticipants(ctx, id, participants); err != nil {
		return Outcome{}, fmt.Errorf("replace participants: %w", err)
	}

	if c.Content.Brief != "" || len(c.Content.KeyPoints) > 0 {
		points := make([]string, 0, len(c.Content.KeyPoints))
		for _, kp := range c.Content.KeyPoints {
			points = append(points, kp.Text)
		}
		encoded, _ := json.Marshal(points)
		summary := &entities.Summary{
			RecordingID: id,
			Brief:       c.Content.Brief,
			KeyPoints:   string(encoded),
		}
		if err := s.repo.UpsertSummary(ctx, summary); err != nil {
			return Outcome{}, fmt.Errorf("upsert summary: %w", err)
		}
	}

	return Outcome{RecordingID: id, Status: constant.SyncStatusSynced}, nil
}

func gongSegments(t gong.CallTranscript, speakerNames map[string]string) []*entities.TranscriptSegment {
	var segments []*entities.TranscriptSegment
	for _, m := range t.Monologues {
		speaker := speakerNames[m.SpeakerID]
		if speaker == "" {
			speaker = m.SpeakerID
		}
		for _, sent := range m.Sentences {
			if sent.End <= sent.Start || sent.Text == "" {
				continue
			}
			segments = append(segments, &entities.TranscriptSegment{
				StartSeconds: float64(sent.Start) / 1000,
				EndSeconds:   float64(sent.End) / 1000,
				Speaker:      speaker,
				Text:         sent.Text,
			})
		}
	}
	return segments
}
