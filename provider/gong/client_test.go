package gong

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestListCallsSendsFilterAndSelector(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/calls/extensive" {
			t.Errorf("path: %s", r.URL.Path)
		}
		user, pass, _ := r.BasicAuth()
		if user != "ak" || pass != "sk" {
			t.Errorf("basic auth: %q / %q", user, pass)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatal(err)
		}
		json.NewEncoder(w).Encode(CallPage{Calls: []Call{{MetaData: CallMeta{ID: "c1"}}}})
	}))
	defer server.Close()

	client := NewClient("ak", "sk", WithBaseURL(server.URL))
	to := time.Now()
	page, err := client.ListCalls(context.Background(), to.AddDate(0, -1, 0), to, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Calls) != 1 || page.Calls[0].MetaData.ID != "c1" {
		t.Errorf("page: %+v", page)
	}

	filter, _ := gotBody["filter"].(map[string]any)
	if _, ok := filter["fromDateTime"]; !ok {
		t.Errorf("filter missing fromDateTime: %v", filter)
	}
	if _, ok := filter["toDateTime"]; !ok {
		t.Errorf("filter missing toDateTime: %v", filter)
	}
	selector, _ := gotBody["contentSelector"].(map[string]any)
	if selector == nil {
		t.Fatal("contentSelector missing")
	}
	exposed, _ := selector["exposedFields"].(map[string]any)
	if exposed["media"] != true || exposed["parties"] != true {
		t.Errorf("exposedFields: %v", exposed)
	}
}

func TestGetTranscriptsRateLimit(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"callTranscripts": []CallTranscript{{CallID: "c1"}},
		})
	}))
	defer server.Close()

	client := NewClient("ak", "sk", WithBaseURL(server.URL))

	_, err := client.GetTranscripts(context.Background(), []string{"c1"})
	var rle *RateLimitError
	if !errors.As(err, &rle) {
		t.Fatalf("got %v, want RateLimitError", err)
	}
	if rle.RetryAfter != 2*time.Second {
		t.Errorf("retry-after: got %s, want 2s", rle.RetryAfter)
	}

	transcripts, err := client.GetTranscripts(context.Background(), []string{"c1"})
	if err != nil {
		t.Fatalf("second attempt: %v", err)
	}
	if len(transcripts) != 1 || transcripts[0].CallID != "c1" {
		t.Errorf("transcripts: %+v", transcripts)
	}
}

func TestGetTranscriptsRateLimitDefaultWait(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient("ak", "sk", WithBaseURL(server.URL))
	_, err := client.GetTranscripts(context.Background(), []string{"c1"})
	var rle *RateLimitError
	if !errors.As(err, &rle) {
		t.Fatalf("got %v, want RateLimitError", err)
	}
	if rle.RetryAfter != time.Minute {
		t.Errorf("default retry-after: got %s, want 1m", rle.RetryAfter)
	}
}

func TestGetTranscriptsRateLimitBodyWait(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{"retryAfter": 5})
	}))
	defer server.Close()

	client := NewClient("ak", "sk", WithBaseURL(server.URL))
	_, err := client.GetTranscripts(context.Background(), []string{"c1"})
	var rle *RateLimitError
	if !errors.As(err, &rle) {
		t.Fatalf("got %v, want RateLimitError", err)
	}
	if rle.RetryAfter != 5*time.Second {
		t.Errorf("body retry-after: got %s, want 5s", rle.RetryAfter)
	}
}

func TestGetTranscriptsRejectsOversizedBatch(t *testing.T) {
	client := NewClient("ak", "sk")
	ids := make([]string, MaxTranscriptBatch+1)
	if _, err := client.GetTranscripts(context.Background(), ids); err == nil {
		t.Fatal("expected batch size error")
	}
}

func TestListCallsCursorPagination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Filter struct {
				Cursor string `json:"cursor"`
			} `json:"filter"`
		}
		json.NewDecoder(r.Body).Decode(&req)

		page := CallPage{Calls: []Call{{MetaData: CallMeta{ID: "first"}}}}
		if req.Filter.Cursor == "" {
			page.Records.Cursor = "next"
		} else {
			page.Calls[0].MetaData.ID = "second"
		}
		json.NewEncoder(w).Encode(page)
	}))
	defer server.Close()

	client := NewClient("ak", "sk", WithBaseURL(server.URL))
	ctx := context.Background()
	to := time.Now()

	first, err := client.ListCalls(ctx, to.AddDate(0, -1, 0), to, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Records.Cursor != "next" {
		t.Fatalf("first page cursor: %q", first.Records.Cursor)
	}
	second, err := client.ListCalls(ctx, to.AddDate(0, -1, 0), to, first.Records.Cursor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Calls[0].MetaData.ID != "second" {
		t.Errorf("second page: %+v", second)
	}
}
