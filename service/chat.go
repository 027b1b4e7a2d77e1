package service

import (
	"bufio"
	"bytes"
	"regexp"
	"strconv"
	"strings"
	"time"

	"meeting-ingest/entities"
)

// Zoom chat exports are line oriented: "HH:MM:SS<tab>Sender:<tab>message".
// Some tenants export "HH:MM:SS From Sender to Everyone: message" instead.
var (
	chatTabLine  = regexp.MustCompile(`^(\d{1,2}:\d{2}:\d{2})\t(.+?):\t(.*)$`)
	chatFromLine = regexp.MustCompile(`^(\d{1,2}:\d{2}:\d{2})\s+From\s+(.+?)\s+to\s+.+?:\s?(.*)$`)
)

// ParseChat parses a provider chat export into messages with offsets in
// seconds relative to the recording start. The file carries wall-clock
// times of day; a timestamp earlier in the day than the meeting start means
// the chat wrapped past midnight, so one day is added. Indented lines
// continue the previous message.
func ParseChat(data []byte, meetingStart time.Time) []*entities.ChatMessage {
	startOfDay := float64(meetingStart.Hour()*3600 + meetingStart.Minute()*60 + meetingStart.Second())

	var messages []*entities.ChatMessage
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		raw := scanner.Text()
		line := strings.TrimRight(raw, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		var ts, sender, text string
		if m := chatTabLine.FindStringSubmatch(line); m != nil {
			ts, sender, text = m[1], m[2], m[3]
		} else if m := chatFromLine.FindStringSubmatch(line); m != nil {
			ts, sender, text = m[1], m[2], m[3]
		} else {
			// continuation of a multi-line message
			if len(messages) > 0 && (strings.HasPrefix(raw, "\t") || strings.HasPrefix(raw, " ")) {
				last := messages[len(messages)-1]
				last.Text = last.Text + "\n" + strings.TrimSpace(line)
			}
			continue
		}

		offset := timeOfDaySeconds(ts) - startOfDay
		if offset < 0 {
			offset += 24 * 3600
		}
		messages = append(messages, &entities.ChatMessage{
			OffsetSeconds: offset,
			Sender:        strings.TrimSpace(sender),
			Text:          strings.TrimSpace(text),
		})
	}
	return messages
}

func timeOfDaySeconds(ts string) float64 {
	parts := strings.Split(ts, ":")
	var total float64
	for _, p := range parts {
		v, _ := strconv.Atoi(p)
		total = total*60 + float64(v)
	}
	return total
}
