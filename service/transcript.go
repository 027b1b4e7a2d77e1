package service

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"meeting-ingest/entities"
)

var ErrEmptyTranscript = errors.New("empty transcript")

// ParseTranscript turns a raw transcript file into ordered segments. The
// format is detected by content sniffing: a WEBVTT header means timed
// captions, a JSON prefix means the provider's monologue export.
// speakerNames maps provider speaker IDs to display names and may be nil.
func ParseTranscript(data []byte, speakerNames map[string]string) ([]*entities.TranscriptSegment, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n\uFEFF")
	if len(trimmed) == 0 {
		return nil, ErrEmptyTranscript
	}
	switch {
	case bytes.HasPrefix(trimmed, []byte("WEBVTT")):
		return parseVTT(trimmed)
	case trimmed[0] == '{' || trimmed[0] == '[':
		return parseMonologueJSON(trimmed, speakerNames)
	default:
		return nil, fmt.Errorf("unrecognized transcript format (starts with %q)", string(trimmed[:min(16, len(trimmed))]))
	}
}

func parseVTT(data []byte) ([]*entities.TranscriptSegment, error) {
	var segments []*entities.TranscriptSegment
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var cur *entities.TranscriptSegment
	var text []string
	flush := func() {
		if cur == nil {
			return
		}
		joined := strings.TrimSpace(strings.Join(text, "\n"))
		if joined != "" {
			speaker, body := splitSpeaker(joined)
			cur.Speaker = speaker
			cur.Text = body
			segments = append(segments, cur)
		}
		cur = nil
		text = nil
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.Contains(line, "-->") {
			flush()
			start, end, err := parseCueTiming(line)
			if err != nil {
				continue
			}
			cur = &entities.TranscriptSegment{StartSeconds: start, EndSeconds: end}
			continue
		}
		if line == "" {
			flush()
			continue
		}
		if cur != nil {
			text = append(text, line)
		}
	}
	flush()
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, ErrEmptyTranscript
	}
	return segments, nil
}

func parseCueTiming(line string) (float64, float64, error) {
	parts := strings.SplitN(line, "-->", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("bad cue timing %q", line)
	}
	// trailing cue settings (align, position) ride after the end timestamp
	endField := strings.Fields(strings.TrimSpace(parts[1]))
	if len(endField) == 0 {
		return 0, 0, fmt.Errorf("bad cue timing %q", line)
	}
	start, err := parseVTTTimestamp(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	end, err := parseVTTTimestamp(endField[0])
	if err != nil {
		return 0, 0, err
	}
	if end <= start {
		return 0, 0, fmt.Errorf("cue end %f not after start %f", end, start)
	}
	return start, end, nil
}

// parseVTTTimestamp accepts HH:MM:SS.mmm and MM:SS.mmm.
func parseVTTTimestamp(s string) (float64, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("bad timestamp %q", s)
	}
	var total float64
	for _, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, fmt.Errorf("bad timestamp %q: %w", s, err)
		}
		total = total*60 + v
	}
	return total, nil
}

func splitSpeaker(text string) (string, string) {
	if idx := strings.Index(text, ": "); idx > 0 && idx < 80 {
		return strings.TrimSpace(text[:idx]), strings.TrimSpace(text[idx+2:])
	}
	return "", text
}

type monologueJSON struct {
	SpeakerID string `json:"speakerId"`
	Speaker   string `json:"speaker"`
	Sentences []struct {
		Start int64  `json:"start"` // milliseconds
		End   int64  `json:"end"`
		Text  string `json:"text"`
	} `json:"sentences"`
}

func parseMonologueJSON(data []byte, speakerNames map[string]string) ([]*entities.TranscriptSegment, error) {
	var monologues []monologueJSON
	if data[0] == '[' {
		if err := json.Unmarshal(data, &monologues); err != nil {
			return nil, fmt.Errorf("parse monologue array: %w", err)
		}
	} else {
		var wrapper struct {
			Transcript []monologueJSON `json:"transcript"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, fmt.Errorf("parse transcript object: %w", err)
		}
		monologues = wrapper.Transcript
	}

	var segments []*entities.TranscriptSegment
	for _, m := range monologues {
		speaker := m.Speaker
		if speaker == "" {
			speaker = m.SpeakerID
		}
		if name, ok := speakerNames[m.SpeakerID]; ok && name != "" {
			speaker = name
		}
		for _, s := range m.Sentences {
			if s.End <= s.Start || strings.TrimSpace(s.Text) == "" {
				continue
			}
			segments = append(segments, &entities.TranscriptSegment{
				StartSeconds: float64(s.Start) / 1000,
				EndSeconds:   float64(s.End) / 1000,
				Speaker:      speaker,
				Text:         strings.TrimSpace(s.Text),
			})
		}
	}
	if len(segments) == 0 {
		return nil, ErrEmptyTranscript
	}
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].StartSeconds < segments[j].StartSeconds
	})
	return segments, nil
}

// DeriveSpeakers returns one speaker per distinct non-empty segment label,
// in order of first appearance.
func DeriveSpeakers(segments []*entities.TranscriptSegment) []*entities.Speaker {
	seen := make(map[string]bool)
	var speakers []*entities.Speaker
	for _, s := range segments {
		if s.Speaker == "" || seen[s.Speaker] {
			continue
		}
		seen[s.Speaker] = true
		speakers = append(speakers, &entities.Speaker{Name: s.Speaker})
	}
	return speakers
}

