package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// ClipExtractor produces short clips and poster stills from media. The
// production implementation shells out to ffmpeg; tests substitute a fake.
type ClipExtractor interface {
	ExtractClip(ctx context.Context, mediaURL string, offsetSeconds float64, outPath string) error
	ExtractPoster(ctx context.Context, clipPath, outPath string) error
}

var ErrExtractionTimeout = errors.New("extraction timed out")

type FFmpegExtractor struct {
	binary      string
	clipSeconds int
	fps         int
	width       int
	timeout     time.Duration
	debug       bool
}

// NewFFmpegExtractor resolves the ffmpeg binary up front; a missing binary
// is a setup error the process must fail on, not something to discover
// mid-run.
func NewFFmpegExtractor(clipSeconds, fps, width int, timeout time.Duration, debug bool) (*FFmpegExtractor, error) {
	binary, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg binary not found in PATH: %w", err)
	}
	return &FFmpegExtractor{
		binary:      binary,
		clipSeconds: clipSeconds,
		fps:         fps,
		width:       width,
		timeout:     timeout,
		debug:       debug,
	}, nil
}

// ExtractClip cuts a short clip starting at offsetSeconds. The -ss flag
// goes BEFORE -i so ffmpeg seeks via HTTP range requests instead of
// reading the file from the start; reversing the order forces a full
// sequential download. The subprocess gets a hard wall-clock timeout; on
// timeout it is killed and any partial output file is removed.
func (e *FFmpegExtractor) ExtractClip(ctx context.Context, mediaURL string, offsetSeconds float64, outPath string) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	args := []string{
		"-ss", strconv.FormatFloat(offsetSeconds, 'f', 2, 64),
		"-i", mediaURL,
		"-t", strconv.Itoa(e.clipSeconds),
		"-vf", fmt.Sprintf("fps=%d,scale=%d:-2", e.fps, e.width),
		"-an",
		"-f", "mp4",
		"-y", outPath,
	}
	if err := e.run(ctx, args); err != nil {
		_ = os.Remove(outPath)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s at offset %.1fs", ErrExtractionTimeout, e.timeout, offsetSeconds)
		}
		return err
	}

	info, err := os.Stat(outPath)
	if err != nil {
		return fmt.Errorf("ffmpeg produced no output: %w", err)
	}
	if info.Size() == 0 {
		_ = os.Remove(outPath)
		return errors.New("ffmpeg produced an empty file")
	}
	return nil
}

// ExtractPoster renders the first frame of a local clip as a JPEG still.
func (e *FFmpegExtractor) ExtractPoster(ctx context.Context, clipPath, outPath string) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	args := []string{
		"-i", clipPath,
		"-vframes", "1",
		"-q:v", "2",
		"-f", "image2",
		"-y", outPath,
	}
	if err := e.run(ctx, args); err != nil {
		_ = os.Remove(outPath)
		return err
	}
	return nil
}

func (e *FFmpegExtractor) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, e.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if e.debug {
		zerolog.Ctx(ctx).Debug().Strs("args", args).Msg("running ffmpeg")
	}
	if err := cmd.Run(); err != nil {
		if e.debug {
			zerolog.Ctx(ctx).Debug().Str("stderr", stderr.String()).Msg("ffmpeg failed")
		}
		return fmt.Errorf("ffmpeg: %w", err)
	}
	return nil
}
