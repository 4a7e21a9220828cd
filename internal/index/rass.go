package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// EngineResult is one result from the remote RASS engine.
type EngineResult struct {
	ID          int                 `json:"id"`
	Subject     string              `json:"subject"`
	Description string              `json:"description"`
	CreatedAt   string              `json:"created_at"`
	Project     string              `json:"project"`
	ProjectID   *int                `json:"project_id"`
	Score       float64             `json:"score"`
	Highlights  map[string][]string `json:"highlights"`
}

// EngineClient talks to the remote RASS semantic search engine.
//
// Unlike the index client it does return errors: the orchestrator needs
// to distinguish "engine answered" (even with zero results) from
// "engine failed" to drive the fallback to classic search.
type EngineClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  zerolog.Logger
}

func NewEngineClient(baseURL, apiKey string, logger zerolog.Logger) *EngineClient {
	return &EngineClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Configured reports whether an engine endpoint is set at all.
func (c *EngineClient) Configured() bool {
	return c.baseURL != ""
}

// Search queries the engine. The response envelope carries results
// under a top-level `results` key or nested under `data.results`;
// either shape, including an empty list, counts as success.
func (c *EngineClient) Search(ctx context.Context, q string, k int, filters map[string]any, userLogin string) ([]EngineResult, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("rass engine not configured")
	}
	if filters == nil {
		filters = map[string]any{}
	}

	body, err := json.Marshal(map[string]any{
		"q":       q,
		"k":       k,
		"filters": filters,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal engine request: %w", err)
	}

	url := c.baseURL + "/search"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build engine request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Rass-User", userLogin)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("engine request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("engine returned status %d", resp.StatusCode)
	}

	var envelope struct {
		Results []EngineResult `json:"results"`
		Data    struct {
			Results []EngineResult `json:"results"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("engine response not parseable: %w", err)
	}

	if envelope.Results != nil {
		return envelope.Results, nil
	}
	if envelope.Data.Results != nil {
		return envelope.Data.Results, nil
	}
	return []EngineResult{}, nil
}
