package service

import (
	"errors"
	"math"
	"testing"
)

const sampleVTT = `WEBVTT

1
00:00:01.000 --> 00:00:04.500
Alice Nguyen: Welcome everyone to the weekly review.

2
00:00:05.000 --> 00:00:09.250 align:start position:0%
Bob: Thanks. Let me share my screen
and walk through the numbers.

3
01:02.000 --> 01:05.000
No speaker label on this cue.
`

func TestParseTranscriptVTT(t *testing.T) {
	segments, err := ParseTranscript([]byte(sampleVTT), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 3 {
		t.Fatalf("got %d segments, want 3", len(segments))
	}

	first := segments[0]
	if first.StartSeconds != 1 || first.EndSeconds != 4.5 {
		t.Errorf("first cue timing: got %.3f-%.3f", first.StartSeconds, first.EndSeconds)
	}
	if first.Speaker != "Alice Nguyen" {
		t.Errorf("first speaker: got %q", first.Speaker)
	}
	if first.Text != "Welcome everyone to the weekly review." {
		t.Errorf("first text: got %q", first.Text)
	}

	second := segments[1]
	if second.StartSeconds != 5 || second.EndSeconds != 9.25 {
		t.Errorf("cue settings broke the end timestamp: got %.3f-%.3f", second.StartSeconds, second.EndSeconds)
	}
	if second.Speaker != "Bob" {
		t.Errorf("second speaker: got %q", second.Speaker)
	}
	if second.Text != "Thanks. Let me share my screen\nand walk through the numbers." {
		t.Errorf("multi-line text: got %q", second.Text)
	}

	third := segments[2]
	if third.StartSeconds != 62 || third.EndSeconds != 65 {
		t.Errorf("MM:SS timestamp: got %.3f-%.3f", third.StartSeconds, third.EndSeconds)
	}
	if third.Speaker != "" {
		t.Errorf("unlabeled cue got speaker %q", third.Speaker)
	}
}

func TestParseTranscriptVTTWithBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte(sampleVTT)...)
	segments, err := ParseTranscript(data, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 3 {
		t.Errorf("got %d segments, want 3", len(segments))
	}
}

func TestParseTranscriptMonologueArray(t *testing.T) {
	data := []byte(`[
		{"speakerId": "spk-2", "sentences": [
			{"start": 8000, "end": 10000, "text": "Second speaker, later."}
		]},
		{"speakerId": "spk-1", "sentences": [
			{"start": 1500, "end": 4000, "text": "First speaker, earlier."},
			{"start": 4000, "end": 4000, "text": "zero length, dropped"}
		]}
	]`)
	names := map[string]string{"spk-1": "Alice", "spk-2": "Bob"}

	segments, err := ParseTranscript(data, names)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(segments))
	}
	// sorted by start regardless of monologue order
	if segments[0].Speaker != "Alice" || segments[1].Speaker != "Bob" {
		t.Errorf("speakers: got %q then %q", segments[0].Speaker, segments[1].Speaker)
	}
	if math.Abs(segments[0].StartSeconds-1.5) > 1e-9 || math.Abs(segments[0].EndSeconds-4) > 1e-9 {
		t.Errorf("milliseconds not converted: got %.3f-%.3f", segments[0].StartSeconds, segments[0].EndSeconds)
	}
}

func TestParseTranscriptMonologueWrapper(t *testing.T) {
	data := []byte(`{"transcript": [
		{"speakerId": "spk-9", "sentences": [{"start": 0, "end": 1000, "text": "hello"}]}
	]}`)
	segments, err := ParseTranscript(data, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(segments))
	}
	if segments[0].Speaker != "spk-9" {
		t.Errorf("unmapped speaker should fall back to id, got %q", segments[0].Speaker)
	}
}

func TestParseTranscriptEmpty(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("   \n"), []byte("WEBVTT\n\n")} {
		if _, err := ParseTranscript(data, nil); !errors.Is(err, ErrEmptyTranscript) {
			t.Errorf("ParseTranscript(%q): got %v, want ErrEmptyTranscript", data, err)
		}
	}
}

func TestParseTranscriptUnknownFormat(t *testing.T) {
	_, err := ParseTranscript([]byte("<html>not a transcript</html>"), nil)
	if err == nil || errors.Is(err, ErrEmptyTranscript) {
		t.Errorf("got %v, want format error", err)
	}
}

func TestDeriveSpeakers(t *testing.T) {
	segments, err := ParseTranscript([]byte(sampleVTT), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	speakers := DeriveSpeakers(segments)
	if len(speakers) != 2 {
		t.Fatalf("got %d speakers, want 2", len(speakers))
	}
	if speakers[0].Name != "Alice Nguyen" || speakers[1].Name != "Bob" {
		t.Errorf("got %q, %q; want first-appearance order", speakers[0].Name, speakers[1].Name)
	}
}
