package zoom

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	defaultBaseURL = "https://api.zoom.us/v2"
	defaultAuthURL = "https://zoom.us/oauth/token"

	// MaxWindowDays is the widest from/to span the recordings listing accepts.
	MaxWindowDays = 30

	// DownloadTokenTTL is the ttl we request for download access tokens.
	DownloadTokenTTL = 3600

	pageSize = 300
)

// Client talks to the Zoom REST API using server-to-server OAuth
// (client-credentials with an account_id grant). The access token is cached
// until shortly before expiry.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	authURL      string
	accountID    string
	clientID     string
	clientSecret string

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

type Option func(*Client)

// WithBaseURL overrides the API and token endpoints, for tests.
func WithBaseURL(apiURL, authURL string) Option {
	return func(c *Client) {
		c.baseURL = apiURL
		c.authURL = authURL
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func NewClient(accountID, clientID, clientSecret string, opts ...Option) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		baseURL:      defaultBaseURL,
		authURL:      defaultAuthURL,
		accountID:    accountID,
		clientID:     clientID,
		clientSecret: clientSecret,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RecordingFile is one file variant of a cloud recording.
type RecordingFile struct {
	ID            string `json:"id"`
	FileType      string `json:"file_type"`
	RecordingType string `json:"recording_type"`
	Status        string `json:"status"`
	DownloadURL   string `json:"download_url"`
	PlayURL       string `json:"play_url"`
	FileSize      int64  `json:"file_size"`
}

// Meeting is one listed meeting with its recording files.
type Meeting struct {
	UUID           string          `json:"uuid"`
	ID             int64           `json:"id"`
	Topic          string          `json:"topic"`
	StartTime      time.Time       `json:"start_time"`
	Duration       int             `json:"duration"` // minutes
	RecordingFiles []RecordingFile `json:"recording_files"`
}

// RecordingPage is one page of the account recordings listing.
type RecordingPage struct {
	Meetings      []Meeting `json:"meetings"`
	NextPageToken string    `json:"next_page_token"`
	TotalRecords  int       `json:"total_records"`
}

// MeetingRecordings is the per-meeting detail, carrying a short-lived
// download access token valid for all of the meeting's files.
type MeetingRecordings struct {
	UUID                string          `json:"uuid"`
	Topic               string          `json:"topic"`
	StartTime           time.Time       `json:"start_time"`
	Duration            int             `json:"duration"`
	DownloadAccessToken string          `json:"download_access_token"`
	RecordingFiles      []RecordingFile `json:"recording_files"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "account_credentials")
	form.Set("account_id", c.accountID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("zoom token request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("zoom token request: status %d: %s", resp.StatusCode, string(body))
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("zoom token decode: %w", err)
	}
	c.token = tok.AccessToken
	// renew a minute early so in-flight requests never race expiry
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	return c.token, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("zoom GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("zoom GET %s: status %d: %s", path, resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ListRecordings returns one page of cloud recordings created inside
// [from, to]. The span must not exceed MaxWindowDays; pagination continues
// while NextPageToken is non-empty.
func (c *Client) ListRecordings(ctx context.Context, from, to time.Time, pageToken string) (*RecordingPage, error) {
	if to.Sub(from) > (MaxWindowDays+1)*24*time.Hour {
		return nil, fmt.Errorf("zoom list window %s - %s exceeds %d days", from.Format("2006-01-02"), to.Format("2006-01-02"), MaxWindowDays)
	}
	q := url.Values{}
	q.Set("from", from.Format("2006-01-02"))
	q.Set("to", to.Format("2006-01-02"))
	q.Set("page_size", fmt.Sprintf("%d", pageSize))
	if pageToken != "" {
		q.Set("next_page_token", pageToken)
	}
	var page RecordingPage
	if err := c.get(ctx, "/accounts/me/recordings", q, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetMeetingRecordings fetches the file variants of one meeting together
// with a fresh download access token. Meeting UUIDs containing '/' or
// starting with '/' must be double URL-encoded per the Zoom API contract.
func (c *Client) GetMeetingRecordings(ctx context.Context, meetingUUID string) (*MeetingRecordings, error) {
	id := meetingUUID
	if strings.HasPrefix(id, "/") || strings.Contains(id, "//") {
		id = url.QueryEscape(url.QueryEscape(id))
	} else {
		id = url.QueryEscape(id)
	}
	q := url.Values{}
	q.Set("include_fields", "download_access_token")
	q.Set("ttl", fmt.Sprintf("%d", DownloadTokenTTL))
	var detail MeetingRecordings
	if err := c.get(ctx, "/meetings/"+id+"/recordings", q, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Download fetches a signed recording asset (transcript, chat, media). The
// download access token from the meeting detail rides along as a query
// parameter, which is what the signed URLs expect.
func (c *Client) Download(ctx context.Context, downloadURL, accessToken string) ([]byte, error) {
	u := downloadURL
	if accessToken != "" {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + "access_token=" + url.QueryEscape(accessToken)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("zoom download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("zoom download: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// MediaURL builds a directly playable URL for a recording file by attaching
// the download access token. Each caller should hold its own token: the
// signed URLs have not proven safe for concurrent range reads, so preview
// extraction fetches a fresh one per candidate.
func MediaURL(file RecordingFile, accessToken string) string {
	if accessToken == "" {
		return file.DownloadURL
	}
	sep := "?"
	if strings.Contains(file.DownloadURL, "?") {
		sep = "&"
	}
	return file.DownloadURL + sep + "access_token=" + url.QueryEscape(accessToken)
}
