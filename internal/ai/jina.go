package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const jinaEndpoint = "https://api.jina.ai/v1/embeddings"

type JinaClient struct {
	config *ClientConfig
	http   *http.Client
}

func NewJinaClient(config *ClientConfig) *JinaClient {
	if config.EmbedModel == "" {
		config.EmbedModel = "jina-embeddings-v3"
	}
	if config.Endpoint == "" {
		config.Endpoint = jinaEndpoint
	}
	if config.Dim == 0 {
		config.Dim = DefaultDim
	}

	return &JinaClient{
		config: config,
		http: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

// Embed requests an embedding vector for text from the Jina AI API.
// Jina's batch endpoint is used with a single input.
func (c *JinaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.config.APIKey == "" {
		return nil, ErrNotConfigured
	}

	payload := map[string]any{
		"input":      []string{text},
		"model":      c.config.EmbedModel,
		"dimensions": c.config.Dim,
	}

	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jina embedding status %d", resp.StatusCode)
	}

	var out struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, errors.New("no embedding in response")
	}
	return out.Data[0].Embedding, nil
}

func (c *JinaClient) Dim() int {
	return c.config.Dim
}
