package recorder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Recorder starts a proof-video recording with a hard ceiling in seconds and
// returns the saved file path. The implementation must auto-stop at or before
// the ceiling regardless of any configured default maximum. A zero ceiling is
// a valid call: the recording is started and force-stopped immediately.
type Recorder interface {
	Start(ctx context.Context, maxSeconds int) (string, error)
}

// TerminalRecorder commands the camera terminal co-located with the drum. The
// terminal records, saves locally, and responds with the file path once done;
// frame capture mechanics stay on the terminal.
type TerminalRecorder struct {
	terminalURL string
	client      *http.Client
}

// NewTerminalRecorder constructs a Recorder against the terminal's local
// control endpoint.
func NewTerminalRecorder(terminalURL string) *TerminalRecorder {
	return &TerminalRecorder{
		terminalURL: terminalURL,
		// the call blocks for the whole recording; cap well above any budget
		client: &http.Client{Timeout: 30 * time.Minute},
	}
}

func (r *TerminalRecorder) Start(ctx context.Context, maxSeconds int) (string, error) {
	body, err := json.Marshal(map[string]int{"max_seconds": maxSeconds})
	if err != nil {
		return "", fmt.Errorf("failed to encode record command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.terminalURL+"/record", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create record request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("recording command failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("camera terminal returned status %d", resp.StatusCode)
	}

	var result struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode record response: %w", err)
	}
	if result.Path == "" {
		return "", fmt.Errorf("camera terminal returned no file path")
	}
	return result.Path, nil
}
