package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matheus3301/moodtrack/internal/mood"
)

// Ensure Client implements Mirror at compile time.
var _ Mirror = (*Client)(nil)

const (
	defaultUserAgent = "moodtrack/0.1"
	requestTimeout   = 10 * time.Second
	deviceHeader     = "X-Device-ID"
)

// Client talks to the moodmirror HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	deviceID  string
}

// NewClient builds a Client for the mirror at rawURL. deviceID identifies
// this installation to the mirror.
func NewClient(rawURL, deviceID string) (*Client, error) {
	base, err := parseBaseURL(rawURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: requestTimeout},
		userAgent: defaultUserAgent,
		deviceID:  deviceID,
	}, nil
}

// BaseURL returns the normalized mirror address.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Add uploads a new entry.
func (c *Client) Add(ctx context.Context, e mood.Entry) error {
	return c.put(ctx, e)
}

// Update uploads the current state of an existing entry.
func (c *Client) Update(ctx context.Context, e mood.Entry) error {
	return c.put(ctx, e)
}

// Delete removes an entry from the mirror. Missing entries are not an error.
func (c *Client) Delete(ctx context.Context, e mood.Entry) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/entries/"+url.PathEscape(e.ID), nil, nil)
}

// SyncResult is the mirror's acknowledgement of a checkpoint.
type SyncResult struct {
	Entries  int       `json:"entries"`
	SyncedAt time.Time `json:"synced_at"`
}

// Save asks the mirror to checkpoint what it has received.
func (c *Client) Save(ctx context.Context) error {
	_, err := c.Sync(ctx)
	return err
}

// Sync checkpoints the mirror and returns how many entries it holds.
func (c *Client) Sync(ctx context.Context) (SyncResult, error) {
	var result SyncResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/sync", nil, &result); err != nil {
		return SyncResult{}, err
	}
	return result, nil
}

// Ping checks that the mirror is reachable and healthy.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

func (c *Client) put(ctx context.Context, e mood.Entry) error {
	return c.do(ctx, http.MethodPut, "/api/v1/entries/"+url.PathEscape(e.ID), PayloadFromEntry(e), nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	endpoint := c.baseURL.JoinPath(path)

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.deviceID != "" {
		req.Header.Set(deviceHeader, c.deviceID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// StatusError reports a non-2xx response from the mirror.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

func parseBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("mirror url is empty")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse mirror url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported mirror url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("mirror url %q has no host", raw)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
