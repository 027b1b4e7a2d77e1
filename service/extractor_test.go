package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// stubFFmpeg puts a shell script named ffmpeg on PATH. Every script can rely
// on the output path being the last argument.
func stubFFmpeg(t *testing.T, script string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ffmpeg"), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestNewFFmpegExtractorRequiresBinary(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	if _, err := NewFFmpegExtractor(4, 12, 480, time.Second, false); err == nil {
		t.Fatal("expected error when ffmpeg is not on PATH")
	}
}

func TestExtractClipWritesOutput(t *testing.T) {
	stubFFmpeg(t, "#!/bin/sh\nfor last; do :; done\nprintf clip > \"$last\"\n")
	extractor, err := NewFFmpegExtractor(4, 12, 480, 5*time.Second, false)
	if err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(t.TempDir(), "clip.mp4")
	if err := extractor.ExtractClip(context.Background(), "https://media/a.mp4", 30, out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	info, err := os.Stat(out)
	if err != nil {
		t.Fatalf("output missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("output is empty")
	}
}

func TestExtractClipTimeoutKillsAndRemovesPartialOutput(t *testing.T) {
	// writes a partial file, then outlives the deadline
	stubFFmpeg(t, "#!/bin/sh\nfor last; do :; done\nprintf partial > \"$last\"\nsleep 5\n")
	extractor, err := NewFFmpegExtractor(4, 12, 480, 100*time.Millisecond, false)
	if err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(t.TempDir(), "clip.mp4")
	start := time.Now()
	err = extractor.ExtractClip(context.Background(), "https://media/slow.mp4", 30, out)
	if !errors.Is(err, ErrExtractionTimeout) {
		t.Fatalf("got %v, want ErrExtractionTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("subprocess not killed at the deadline, took %s", elapsed)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("partial output left behind after timeout")
	}
}

func TestExtractClipRejectsEmptyOutput(t *testing.T) {
	stubFFmpeg(t, "#!/bin/sh\nexit 0\n")
	extractor, err := NewFFmpegExtractor(4, 12, 480, time.Second, false)
	if err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(t.TempDir(), "clip.mp4")
	if err := extractor.ExtractClip(context.Background(), "https://media/a.mp4", 30, out); err == nil {
		t.Fatal("expected error when ffmpeg produces no output")
	}
}
