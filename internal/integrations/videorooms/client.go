// Package videorooms is the client for the video-conferencing provider's
// REST API. Session scheduling asks it for a room; everything else about
// rooms and tracks is the provider's concern.
package videorooms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"coachmotion-backend/internal/integrations/paramstore"
)

// createRoomRequest is the minimal request shape for room creation.
type createRoomRequest struct {
	Name       string         `json:"name,omitempty"`
	Properties roomProperties `json:"properties"`
}

type roomProperties struct {
	MaxParticipants int   `json:"max_participants,omitempty"`
	ExpiresAt       int64 `json:"exp,omitempty"`
}

// Room is the provider's room record, reduced to what scheduling needs.
type Room struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// HTTPStatusError captures non-2xx provider responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("videorooms: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client is a focused client for the rooms API. The API key is fetched from
// SSM on the first call and reused for the lifetime of the process.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	getter      paramstore.Getter
	paramPrefix string

	keyOnce sync.Once
	apiKey  string
	keyErr  error
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(ps paramstore.Getter, paramPrefix string, opts ...Option) (*Client, error) {
	if ps == nil {
		return nil, errors.New("videorooms: paramstore getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("videorooms: parameter prefix must not be empty")
	}
	c := &Client{
		baseURL:     "https://api.daily.co/v1",
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		getter:      ps,
		paramPrefix: paramPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) resolveAPIKey(ctx context.Context) (string, error) {
	c.keyOnce.Do(func() {
		c.apiKey, c.keyErr = paramstore.GetSecretToken(ctx, c.getter, c.paramPrefix+"/rooms-api-key")
	})
	return c.apiKey, c.keyErr
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func roomsURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = "https://api.daily.co/v1"
	}
	return base + "/rooms"
}

// CreateRoom provisions a room for a session. The room expires two hours
// after the expected session end so stale rooms do not accumulate.
func (c *Client) CreateRoom(ctx context.Context, name string, maxParticipants int, sessionEnd time.Time) (Room, error) {
	apiKey, err := c.resolveAPIKey(ctx)
	if err != nil {
		return Room{}, err
	}

	reqBody := createRoomRequest{
		Name: name,
		Properties: roomProperties{
			MaxParticipants: maxParticipants,
		},
	}
	if !sessionEnd.IsZero() {
		reqBody.Properties.ExpiresAt = sessionEnd.Add(2 * time.Hour).Unix()
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return Room{}, fmt.Errorf("videorooms: marshal request: %w", err)
	}

	url := roomsURL(c.baseURL)
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if reqErr != nil {
		return Room{}, fmt.Errorf("videorooms: create request: %w", reqErr)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	raw, err := c.doJSONRequest(req, url)
	if err != nil {
		return Room{}, fmt.Errorf("videorooms: request failed: %w", err)
	}

	var room Room
	if decErr := json.Unmarshal(raw, &room); decErr != nil {
		return Room{}, fmt.Errorf("videorooms: decode response: %w", decErr)
	}
	if room.Name == "" {
		return Room{}, errors.New("videorooms: no room name in response")
	}
	return room, nil
}

func (c *Client) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}
