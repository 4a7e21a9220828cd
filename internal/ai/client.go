package ai

import (
	"context"
	"errors"
)

// Client turns text into a fixed-length embedding vector.
type Client interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dim() int
}

// ErrNotConfigured is returned by a remote provider that has no usable
// credentials. It is an expected condition, not a failure: the embedder
// falls through to the local provider without logging an error.
var ErrNotConfigured = errors.New("embedding provider not configured")

// Provider is the closed set of supported embedding providers.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
	ProviderJina   Provider = "jina"
	ProviderLocal  Provider = "local"
)

// ParseProvider maps a configured name onto the closed provider set.
// Unknown or empty names select the local deterministic provider so a
// typo in configuration can never break embedding generation.
func ParseProvider(name string) Provider {
	switch Provider(name) {
	case ProviderOpenAI, ProviderGemini, ProviderJina:
		return Provider(name)
	default:
		return ProviderLocal
	}
}

// DefaultDim is the embedding dimensionality used throughout the index.
const DefaultDim = 1536

// ClientConfig holds configuration for embedding clients.
type ClientConfig struct {
	APIKey     string
	EmbedModel string
	// Endpoint overrides the provider's default API endpoint.
	Endpoint  string
	ProjectID string
	Location  string
	Dim       int
	Provider  Provider
}

// NewClient creates an embedding client based on configuration.
func NewClient(ctx context.Context, config *ClientConfig) (Client, error) {
	if config == nil {
		return nil, errors.New("client config is required")
	}

	switch config.Provider {
	case ProviderOpenAI:
		return NewOpenAIClient(config), nil
	case ProviderGemini:
		return NewGeminiClient(ctx, config)
	case ProviderJina:
		return NewJinaClient(config), nil
	case ProviderLocal:
		return NewLocalClient(config.Dim), nil
	default:
		return nil, errors.New("unsupported provider: " + string(config.Provider))
	}
}
