package gong

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	defaultBaseURL = "https://api.gong.io"

	// MaxTranscriptBatch is the largest callIds filter the transcript
	// endpoint accepts in one request.
	MaxTranscriptBatch = 100

	// MaxWindowDays keeps listing windows well inside what the extensive
	// calls endpoint handles in one filter.
	MaxWindowDays = 90
)

// RateLimitError is returned when Gong answers 429. RetryAfter carries the
// server-provided wait before the quota resets.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("gong rate limited, retry after %s", e.RetryAfter)
}

// Client talks to the Gong REST API with access-key/secret basic auth.
type Client struct {
	httpClient *http.Client
	baseURL    string
	accessKey  string
	secretKey  string
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(accessKey, secretKey string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    defaultBaseURL,
		accessKey:  accessKey,
		secretKey:  secretKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CallMeta is the metaData block of an extensive call record.
type CallMeta struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Started  time.Time `json:"started"`
	Duration float64   `json:"duration"` // seconds
	Media    string    `json:"media"`    // "Video" or "Audio"
	URL      string    `json:"url"`
}

type CallMedia struct {
	AudioURL string `json:"audioUrl"`
	VideoURL string `json:"videoUrl"`
}

type CallParty struct {
	SpeakerID    string `json:"speakerId"`
	Name         string `json:"name"`
	EmailAddress string `json:"emailAddress"`
	Affiliation  string `json:"affiliation"`
}

type CallContent struct {
	Brief     string `json:"brief"`
	KeyPoints []struct {
		Text string `json:"text"`
	} `json:"keyPoints"`
}

// Call is one record of the extensive calls listing.
type Call struct {
	MetaData CallMeta    `json:"metaData"`
	Media    CallMedia   `json:"media"`
	Parties  []CallParty `json:"parties"`
	Content  CallContent `json:"content"`
}

// CallPage is one cursor page of the extensive calls listing.
type CallPage struct {
	Calls   []Call `json:"calls"`
	Records struct {
		Cursor       string `json:"cursor"`
		TotalRecords int    `json:"totalRecords"`
	} `json:"records"`
}

// Sentence is one transcript sentence; Start/End are milliseconds from call
// start.
type Sentence struct {
	Start int64  `json:"start"`
	End   int64  `json:"end"`
	Text  string `json:"text"`
}

// Monologue is a run of sentences by one speaker.
type Monologue struct {
	SpeakerID string     `json:"speakerId"`
	Sentences []Sentence `json:"sentences"`
}

// CallTranscript is the transcript of one call.
type CallTranscript struct {
	CallID     string      `json:"callId"`
	Monologues []Monologue `json:"transcript"`
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.accessKey, c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gong POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{RetryAfter: retryAfter(resp)}
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("gong POST %s: status %d: %s", path, resp.StatusCode, string(raw))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}
	// some deployments put the wait in the error body instead of the header
	var body struct {
		RetryAfter float64 `json:"retryAfter"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body); err == nil && body.RetryAfter > 0 {
		return time.Duration(body.RetryAfter * float64(time.Second))
	}
	// quota documents a per-minute budget; a minute is the safe upper bound
	return time.Minute
}

type callsRequest struct {
	Filter          callsFilter      `json:"filter"`
	ContentSelector *contentSelector `json:"contentSelector,omitempty"`
}

type callsFilter struct {
	FromDateTime string   `json:"fromDateTime,omitempty"`
	ToDateTime   string   `json:"toDateTime,omitempty"`
	Cursor       string   `json:"cursor,omitempty"`
	CallIDs      []string `json:"callIds,omitempty"`
}

type contentSelector struct {
	ExposedFields exposedFields `json:"exposedFields"`
}

type exposedFields struct {
	Media   bool            `json:"media"`
	Parties bool            `json:"parties"`
	Content map[string]bool `json:"content,omitempty"`
}

// ListCalls returns one cursor page of calls started inside [from, to],
// with media URLs, parties and content included.
func (c *Client) ListCalls(ctx context.Context, from, to time.Time, cursor string) (*CallPage, error) {
	req := callsRequest{
		Filter: callsFilter{
			FromDateTime: from.UTC().Format(time.RFC3339),
			ToDateTime:   to.UTC().Format(time.RFC3339),
			Cursor:       cursor,
		},
		ContentSelector: &contentSelector{
			ExposedFields: exposedFields{
				Media:   true,
				Parties: true,
				Content: map[string]bool{"brief": true, "keyPoints": true},
			},
		},
	}
	var page CallPage
	if err := c.post(ctx, "/v2/calls/extensive", req, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetTranscripts fetches transcripts for up to MaxTranscriptBatch call IDs
// in one request. Callers chunk larger ID sets themselves.
func (c *Client) GetTranscripts(ctx context.Context, callIDs []string) ([]CallTranscript, error) {
	if len(callIDs) > MaxTranscriptBatch {
		return nil, fmt.Errorf("gong transcript batch of %d exceeds %d", len(callIDs), MaxTranscriptBatch)
	}
	req := callsRequest{Filter: callsFilter{CallIDs: callIDs}}
	var out struct {
		CallTranscripts []CallTranscript `json:"callTranscripts"`
	}
	if err := c.post(ctx, "/v2/calls/transcript", req, &out); err != nil {
		return nil, err
	}
	return out.CallTranscripts, nil
}
