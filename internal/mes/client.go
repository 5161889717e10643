package mes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"drumtrack-service/internal/models"
)

// Client talks to the MES that owns the batch schedule. Its clock is the
// source of truth; this service only polls it.
type Client interface {
	FetchRunningState(ctx context.Context, drumID string) (models.RunningState, error)
	RequestPause(ctx context.Context, drumID string) error
	RequestResume(ctx context.Context, drumID string) error
	AttachVideo(ctx context.Context, drumID, confirmTime, videoRef string) error
}

// HTTPClient is the REST implementation of Client.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient constructs a Client against the MES base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// FetchRunningState retrieves the drum's running process, the authoritative
// server time, the addition list, and the server-supplied config.
func (c *HTTPClient) FetchRunningState(ctx context.Context, drumID string) (models.RunningState, error) {
	var state models.RunningState

	endpoint := fmt.Sprintf("%s/drums/%s/running-state", c.baseURL, url.PathEscape(drumID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return state, fmt.Errorf("failed to create running-state request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return state, fmt.Errorf("failed to fetch running state for drum %s: %w", drumID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return state, fmt.Errorf("MES returned status %d for drum %s", resp.StatusCode, drumID)
	}
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return state, fmt.Errorf("failed to decode running state: %w", err)
	}
	return state, nil
}

// RequestPause asks the MES to pause the drum's process. The local pause flag
// is only flipped after this returns nil.
func (c *HTTPClient) RequestPause(ctx context.Context, drumID string) error {
	return c.post(ctx, fmt.Sprintf("/drums/%s/pause", url.PathEscape(drumID)), nil)
}

// RequestResume asks the MES to resume the drum's process.
func (c *HTTPClient) RequestResume(ctx context.Context, drumID string) error {
	return c.post(ctx, fmt.Sprintf("/drums/%s/resume", url.PathEscape(drumID)), nil)
}

// AttachVideo reports the uploaded proof-video reference for a confirm group.
func (c *HTTPClient) AttachVideo(ctx context.Context, drumID, confirmTime, videoRef string) error {
	payload := map[string]string{
		"confirm_time": confirmTime,
		"video_ref":    videoRef,
	}
	return c.post(ctx, fmt.Sprintf("/drums/%s/video", url.PathEscape(drumID)), payload)
}

func (c *HTTPClient) post(ctx context.Context, path string, payload interface{}) error {
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("MES request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("MES returned status %d for %s", resp.StatusCode, path)
	}
	return nil
}
