package entities

import "testing"

func TestDisplayTitlePrefersCustomTitle(t *testing.T) {
	rec := &Recording{Title: "Zoom Meeting 2024-03-11"}
	if got := rec.DisplayTitle(); got != "Zoom Meeting 2024-03-11" {
		t.Errorf("got %q, want provider title", got)
	}

	custom := "Q1 Pipeline Review"
	rec.CustomTitle = &custom
	if got := rec.DisplayTitle(); got != custom {
		t.Errorf("got %q, want custom title", got)
	}

	empty := ""
	rec.CustomTitle = &empty
	if got := rec.DisplayTitle(); got != "Zoom Meeting 2024-03-11" {
		t.Errorf("empty custom title: got %q, want provider title", got)
	}
}
