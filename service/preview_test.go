package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"meeting-ingest/config"
	"meeting-ingest/constant"
	"meeting-ingest/entities"
)

// fakeExtractor writes placeholder clip and poster files; failAttempts maps
// an output path to how many leading attempts should fail.
type fakeExtractor struct {
	mu           sync.Mutex
	failAttempts map[string]int
	failAll      bool
	clipCalls    int
}

func (f *fakeExtractor) ExtractClip(_ context.Context, _ string, _ float64, outPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clipCalls++
	if f.failAll {
		return errors.New("ffmpeg exploded")
	}
	if f.failAttempts[outPath] > 0 {
		f.failAttempts[outPath]--
		return errors.New("transient ffmpeg failure")
	}
	return os.WriteFile(outPath, []byte("clip"), 0o644)
}

func (f *fakeExtractor) ExtractPoster(_ context.Context, _, outPath string) error {
	return os.WriteFile(outPath, []byte("poster"), 0o644)
}

type fakeStore struct {
	mu      sync.Mutex
	uploads map[string]string // object name -> source path
}

func (f *fakeStore) UploadFile(_ context.Context, objectName, filePath, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploads == nil {
		f.uploads = map[string]string{}
	}
	f.uploads[objectName] = filePath
	return "https://cdn.example.com/" + objectName, nil
}

func testPreviewConfig() config.Preview {
	return config.Preview{
		Concurrency:        2,
		ClipConcurrency:    2,
		CandidateCount:     3,
		ClipSeconds:        4,
		Width:              480,
		FPS:                12,
		Timeout:            time.Second,
		MinDurationSeconds: 60,
	}
}

func previewableRecording(id string) *entities.Recording {
	return &entities.Recording{
		ID:              id,
		Provider:        constant.ProviderGong,
		Title:           "Quarterly Planning",
		VideoURL:        "https://media/" + id + ".mp4",
		MediaKind:       constant.MediaKindVideo,
		DurationSeconds: 600,
		StartedAt:       time.Now().Add(-24 * time.Hour),
	}
}

func cleanupWorkDir(t *testing.T) {
	t.Cleanup(func() { os.RemoveAll("temp") })
}

func clipPathFor(id string, index int) string {
	return filepath.Join("temp", "previews", safePathComponent(id), fmt.Sprintf("candidate_%02d.mp4", index))
}

func TestGeneratePreviewsHappyPath(t *testing.T) {
	cleanupWorkDir(t)
	repo := newFakeRepo()
	repo.recordings["gong_ok"] = previewableRecording("gong_ok")

	extractor := &fakeExtractor{}
	store := &fakeStore{}
	svc := NewPreviewService(repo, nil, extractor, stubRanker{idx: 1}, store, testPreviewConfig())

	report, err := svc.GeneratePreviews(context.Background(), PreviewOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Generated != 1 {
		t.Fatalf("generated %d, want 1 (outcomes: %+v)", report.Generated, report.Outcomes)
	}
	if extractor.clipCalls != 3 {
		t.Errorf("extracted %d clips, want one per candidate", extractor.clipCalls)
	}
	if _, ok := store.uploads["previews/gong_ok/preview.mp4"]; !ok {
		t.Error("preview clip not uploaded")
	}
	if _, ok := store.uploads["previews/gong_ok/poster.jpg"]; !ok {
		t.Error("poster frame not uploaded")
	}

	rec, _ := repo.FindRecording(context.Background(), "gong_ok")
	if rec.PreviewURL == nil || rec.PosterURL == nil {
		t.Fatal("preview urls not persisted")
	}
	if *rec.PreviewURL != "https://cdn.example.com/previews/gong_ok/preview.mp4" {
		t.Errorf("preview url: got %q", *rec.PreviewURL)
	}
}

func TestGeneratePreviewsSkipsIneligible(t *testing.T) {
	cleanupWorkDir(t)
	repo := newFakeRepo()

	audio := previewableRecording("gong_audio")
	audio.MediaKind = constant.MediaKindAudio
	short := previewableRecording("gong_short")
	short.DurationSeconds = 30
	existing := previewableRecording("gong_done")
	url := "https://cdn/old.mp4"
	existing.PreviewURL = &url
	repo.recordings[audio.ID] = audio
	repo.recordings[short.ID] = short
	repo.recordings[existing.ID] = existing

	extractor := &fakeExtractor{}
	svc := NewPreviewService(repo, nil, extractor, nil, &fakeStore{}, testPreviewConfig())

	for _, id := range []string{audio.ID, short.ID, existing.ID} {
		report, err := svc.GeneratePreviews(context.Background(), PreviewOptions{RecordingID: id})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", id, err)
		}
		if report.Skipped != 1 {
			t.Errorf("%s: got %+v, want skipped", id, report.Outcomes)
		}
	}
	if extractor.clipCalls != 0 {
		t.Errorf("ineligible recordings ran %d extractions", extractor.clipCalls)
	}
}

func TestGeneratePreviewsForceRegenerates(t *testing.T) {
	cleanupWorkDir(t)
	repo := newFakeRepo()
	existing := previewableRecording("gong_done")
	url := "https://cdn/old.mp4"
	existing.PreviewURL = &url
	repo.recordings[existing.ID] = existing

	svc := NewPreviewService(repo, nil, &fakeExtractor{}, nil, &fakeStore{}, testPreviewConfig())
	report, err := svc.GeneratePreviews(context.Background(), PreviewOptions{RecordingID: existing.ID, Force: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Generated != 1 {
		t.Errorf("forced run generated %d, want 1", report.Generated)
	}
}

func TestGeneratePreviewsForceScanIncludesCompleted(t *testing.T) {
	cleanupWorkDir(t)
	repo := newFakeRepo()
	done := previewableRecording("gong_done")
	url := "https://cdn/old.mp4"
	done.PreviewURL = &url
	repo.recordings[done.ID] = done

	store := &fakeStore{}
	svc := NewPreviewService(repo, nil, &fakeExtractor{}, nil, store, testPreviewConfig())

	// without force the scan skips recordings that already have a preview
	report, err := svc.GeneratePreviews(context.Background(), PreviewOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Generated != 0 {
		t.Fatalf("unforced scan regenerated %d previews", report.Generated)
	}

	report, err = svc.GeneratePreviews(context.Background(), PreviewOptions{Force: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Generated != 1 {
		t.Fatalf("forced scan generated %d, want 1 (outcomes: %+v)", report.Generated, report.Outcomes)
	}
	rec, _ := repo.FindRecording(context.Background(), done.ID)
	if rec.PreviewURL == nil || *rec.PreviewURL == url {
		t.Error("forced scan did not replace the existing preview url")
	}
}

func TestGeneratePreviewsRetriesFailedCandidateOnce(t *testing.T) {
	cleanupWorkDir(t)
	repo := newFakeRepo()
	repo.recordings["gong_flaky"] = previewableRecording("gong_flaky")

	// every candidate fails its first attempt and succeeds on the retry
	extractor := &fakeExtractor{failAttempts: map[string]int{}}
	svc := NewPreviewService(repo, nil, extractor, nil, &fakeStore{}, testPreviewConfig())

	extractor.mu.Lock()
	for i := 0; i < 3; i++ {
		extractor.failAttempts[clipPathFor("gong_flaky", i)] = 1
	}
	extractor.mu.Unlock()

	report, err := svc.GeneratePreviews(context.Background(), PreviewOptions{RecordingID: "gong_flaky"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Generated != 1 {
		t.Fatalf("generated %d, want 1 (outcomes: %+v)", report.Generated, report.Outcomes)
	}
	if extractor.clipCalls != 6 {
		t.Errorf("got %d clip attempts, want each candidate tried twice", extractor.clipCalls)
	}
}

func TestGeneratePreviewsMarksFailureWhenNoCandidateSurvives(t *testing.T) {
	cleanupWorkDir(t)
	repo := newFakeRepo()
	repo.recordings["gong_doomed"] = previewableRecording("gong_doomed")

	extractor := &fakeExtractor{failAll: true}
	store := &fakeStore{}
	svc := NewPreviewService(repo, nil, extractor, nil, store, testPreviewConfig())

	report, err := svc.GeneratePreviews(context.Background(), PreviewOptions{RecordingID: "gong_doomed"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Failed != 1 {
		t.Fatalf("got %+v, want one failure", report.Outcomes)
	}
	if !repo.failed["gong_doomed"] {
		t.Error("recording not marked preview-failed")
	}
	if len(store.uploads) != 0 {
		t.Errorf("failed run uploaded %d artifacts", len(store.uploads))
	}
	// 3 candidates, 2 attempts each
	if extractor.clipCalls != 6 {
		t.Errorf("got %d clip attempts, want 6", extractor.clipCalls)
	}

	// a marked-failed recording no longer shows up as a candidate
	recs, _ := repo.ListPreviewCandidates(context.Background(), 60, 0, false)
	if len(recs) != 0 {
		t.Error("failed recording still listed as preview candidate")
	}
}

func TestCandidateTimestampsStayInMiddleBand(t *testing.T) {
	const duration = 600.0
	for _, count := range []int{1, 3, 5, 9} {
		ts := CandidateTimestamps(duration, count)
		if len(ts) != count {
			t.Fatalf("count %d: got %d timestamps", count, len(ts))
		}
		lo, hi := 0.1*duration, 0.9*duration
		for i, v := range ts {
			if v <= lo || v >= hi {
				t.Errorf("count %d: timestamp %d = %.2f outside (%.0f, %.0f)", count, i, v, lo, hi)
			}
			if i > 0 && v <= ts[i-1] {
				t.Errorf("count %d: timestamps not strictly increasing at %d", count, i)
			}
		}
	}
}

func TestCandidateTimestampsDegenerateInputs(t *testing.T) {
	if ts := CandidateTimestamps(600, 0); ts != nil {
		t.Errorf("count 0: got %v", ts)
	}
	if ts := CandidateTimestamps(0, 5); ts != nil {
		t.Errorf("zero duration: got %v", ts)
	}
}
