package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	requestTimeout = 2 * time.Minute
)

var ErrNotConfigured = errors.New("openai api key not configured")

const rankPrompt = "You are picking a preview thumbnail for a meeting recording. " +
	"Each image is a frame from a candidate clip. Pick the one most likely to make " +
	"someone click: prefer visible people or shared content, avoid blank screens, " +
	"waiting rooms and slides full of text. Reply with ONLY the number of the best " +
	"image, 1-based."

// Client calls the OpenAI chat completions API with vision input to rank
// candidate frames.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(apiKey, model string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		model:      model,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var firstInt = regexp.MustCompile(`\d+`)

// Rank sends the candidate frames and returns the 0-based index of the
// assistant's pick. Any transport, decoding or parsing problem comes back
// as an error; the caller decides the fallback.
func (c *Client) Rank(ctx context.Context, images [][]byte) (int, error) {
	if c.apiKey == "" {
		return 0, ErrNotConfigured
	}

	content := []map[string]any{
		{"type": "text", "text": fmt.Sprintf("%s There are %d images.", rankPrompt, len(images))},
	}
	for _, img := range images {
		content = append(content, map[string]any{
			"type": "image_url",
			"image_url": map[string]any{
				"url":    "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(img),
				"detail": "low",
			},
		})
	}
	payload := map[string]any{
		"model": c.model,
		"messages": []map[string]any{
			{"role": "user", "content": content},
		},
		"max_tokens":  10,
		"temperature": 0,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, fmt.Errorf("openai request: status %d: %s", resp.StatusCode, string(raw))
	}

	var decoded struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return 0, fmt.Errorf("decode openai response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return 0, errors.New("openai returned no choices")
	}

	reply := strings.TrimSpace(decoded.Choices[0].Message.Content)
	match := firstInt.FindString(reply)
	if match == "" {
		return 0, fmt.Errorf("no index in assistant reply %q", reply)
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0, err
	}
	if n < 1 || n > len(images) {
		return 0, fmt.Errorf("assistant index %d out of range 1..%d", n, len(images))
	}
	return n - 1, nil
}
