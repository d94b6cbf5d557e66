// Package ollama implements the model-unloader action: it walks the
// configured Ollama hosts, asks each for its running models and evicts them
// by issuing a zero keep-alive generate call.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const requestTimeout = 15 * time.Second

// Model is one entry of the /api/ps listing.
type Model struct {
	Name      string `json:"name"`
	Model     string `json:"model"`
	SizeVRAM  int64  `json:"size_vram"`
	ExpiresAt string `json:"expires_at"`
}

// Client talks to one Ollama server.
type Client struct {
	baseURL    string
	httpClient *http.Client

	// settle is how long to wait after an unload request before verifying
	// the model is gone; Ollama evicts asynchronously.
	settle time.Duration
}

// NewClient creates a Client pointing at baseURL (e.g. "http://localhost:11434").
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		settle:     2 * time.Second,
	}
}

// RunningModels returns the models currently loaded on the server.
func (c *Client) RunningModels(ctx context.Context) ([]Model, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/ps", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s/api/ps: %w", c.baseURL, err)
	}
	defer func() { //nolint:errcheck // response body close errors are non-actionable after reading
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s/api/ps returned %d", c.baseURL, resp.StatusCode)
	}

	var payload struct {
		Models []Model `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode ps response: %w", err)
	}
	return payload.Models, nil
}

// Unload evicts one model by requesting a generation with keep_alive 0, then
// verifies it left the running set. Returns false when the model was not
// running or is still listed after the eviction request.
func (c *Client) Unload(ctx context.Context, model string) (bool, error) {
	running, err := c.RunningModels(ctx)
	if err != nil {
		return false, err
	}
	if !containsModel(running, model) {
		return false, nil
	}

	body, err := json.Marshal(map[string]any{
		"model":      model,
		"prompt":     " ",
		"keep_alive": 0,
	})
	if err != nil {
		return false, fmt.Errorf("marshal generate request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("POST %s/api/generate: %w", c.baseURL, err)
	}
	defer func() { //nolint:errcheck // response body close errors are non-actionable after reading
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return false, fmt.Errorf("POST %s/api/generate returned %d", c.baseURL, resp.StatusCode)
	}

	if c.settle > 0 {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(c.settle):
		}
	}

	running, err = c.RunningModels(ctx)
	if err != nil {
		return false, err
	}
	return !containsModel(running, model), nil
}

func containsModel(models []Model, name string) bool {
	for _, m := range models {
		if m.Model == name {
			return true
		}
	}
	return false
}
