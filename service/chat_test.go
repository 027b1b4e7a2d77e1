package service

import (
	"testing"
	"time"
)

func TestParseChatTabFormat(t *testing.T) {
	data := []byte("09:00:05\tAlice Nguyen:\tgood morning\n09:01:35\tBob:\tmorning!\n")
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	messages := ParseChat(data, start)
	if len(messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(messages))
	}
	if messages[0].OffsetSeconds != 5 {
		t.Errorf("first offset: got %.0f, want 5", messages[0].OffsetSeconds)
	}
	if messages[0].Sender != "Alice Nguyen" || messages[0].Text != "good morning" {
		t.Errorf("first message: got %q / %q", messages[0].Sender, messages[0].Text)
	}
	if messages[1].OffsetSeconds != 95 {
		t.Errorf("second offset: got %.0f, want 95", messages[1].OffsetSeconds)
	}
}

func TestParseChatFromFormat(t *testing.T) {
	data := []byte("10:15:30 From Carol Diaz to Everyone: the deck is in the drive\n")
	start := time.Date(2026, 3, 10, 10, 15, 0, 0, time.UTC)

	messages := ParseChat(data, start)
	if len(messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(messages))
	}
	if messages[0].Sender != "Carol Diaz" {
		t.Errorf("sender: got %q", messages[0].Sender)
	}
	if messages[0].Text != "the deck is in the drive" {
		t.Errorf("text: got %q", messages[0].Text)
	}
	if messages[0].OffsetSeconds != 30 {
		t.Errorf("offset: got %.0f, want 30", messages[0].OffsetSeconds)
	}
}

func TestParseChatMidnightRollover(t *testing.T) {
	// meeting starts 23:50, message lands 00:10 the next day
	data := []byte("00:10:00\tNight Owl:\tstill here\n")
	start := time.Date(2026, 3, 10, 23, 50, 0, 0, time.UTC)

	messages := ParseChat(data, start)
	if len(messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(messages))
	}
	if messages[0].OffsetSeconds != 20*60 {
		t.Errorf("offset: got %.0f, want %d", messages[0].OffsetSeconds, 20*60)
	}
}

func TestParseChatContinuationLines(t *testing.T) {
	data := []byte("09:00:10\tAlice:\tfirst line\n\tsecond line\nnot part of anything\n")
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	messages := ParseChat(data, start)
	if len(messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(messages))
	}
	if messages[0].Text != "first line\nsecond line" {
		t.Errorf("text: got %q", messages[0].Text)
	}
}

func TestParseChatSkipsBlankAndGarbage(t *testing.T) {
	data := []byte("\n\nrandom header line\n09:00:01\tAlice:\thi\n")
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	messages := ParseChat(data, start)
	if len(messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(messages))
	}
}
