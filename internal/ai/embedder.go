package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
)

// Embedder is the embedding entry point for the search engine. It
// consults the cache first, then the selected provider, and degrades to
// the deterministic local provider on any provider failure, so Embed
// never fails regardless of network conditions or configuration.
//
// Provider precedence per call: explicit override > configured selection
// (consulted on every call, so configuration changes take effect without
// a restart) > local.
type Embedder struct {
	cache          *Cache
	clients        map[Provider]Client
	selectProvider func() Provider
	local          *LocalClient
	logger         zerolog.Logger
}

// NewEmbedder wires the cache, the available provider clients and the
// per-call provider selector. dim fixes the vector length the embedder
// guarantees; provider responses of any other length are discarded as
// malformed.
func NewEmbedder(clients map[Provider]Client, selectProvider func() Provider, cache *Cache, dim int, logger zerolog.Logger) *Embedder {
	if cache == nil {
		cache = NewCache(0, 0, false)
	}
	return &Embedder{
		cache:          cache,
		clients:        clients,
		selectProvider: selectProvider,
		local:          NewLocalClient(dim),
		logger:         logger,
	}
}

// Embed returns the embedding vector for text using the configured
// provider. It never returns an error.
func (e *Embedder) Embed(ctx context.Context, text string) []float32 {
	return e.embed(ctx, "", text)
}

// EmbedUsing is Embed with an explicit provider override, used by the
// configuration test surface.
func (e *Embedder) EmbedUsing(ctx context.Context, override Provider, text string) []float32 {
	return e.embed(ctx, override, text)
}

// Dim returns the guaranteed vector length.
func (e *Embedder) Dim() int {
	return e.local.Dim()
}

// CacheStats exposes the embedding cache state for observability.
func (e *Embedder) CacheStats() CacheStats {
	return e.cache.Stats()
}

// ClearCache empties the embedding cache.
func (e *Embedder) ClearCache() {
	e.cache.Clear()
}

func (e *Embedder) embed(ctx context.Context, override Provider, text string) []float32 {
	if strings.TrimSpace(text) == "" {
		vector, _ := e.local.Embed(ctx, text)
		return vector
	}

	if vector, ok := e.cache.Get(text); ok {
		return vector
	}

	provider := override
	if provider == "" {
		provider = ProviderLocal
		if e.selectProvider != nil {
			provider = ParseProvider(string(e.selectProvider()))
		}
	}

	vector := e.attempt(ctx, provider, text)
	e.cache.Set(text, vector)
	return vector
}

// attempt runs the provider call and applies the fallback contract.
func (e *Embedder) attempt(ctx context.Context, provider Provider, text string) []float32 {
	client, ok := e.clients[provider]
	if !ok || client == nil {
		client = e.local
	}

	vector, err := client.Embed(ctx, text)
	switch {
	case errors.Is(err, ErrNotConfigured):
		e.logger.Debug().Str("provider", string(provider)).Msg("embedding provider has no credentials, using local fallback")
	case err != nil:
		e.logger.Warn().Err(err).Str("provider", string(provider)).Msg("embedding provider failed, using local fallback")
	case len(vector) != e.local.Dim():
		e.logger.Warn().Int("got", len(vector)).Int("want", e.local.Dim()).
			Str("provider", string(provider)).Msg("embedding has unexpected dimension, using local fallback")
	default:
		return vector
	}

	vector, _ = e.local.Embed(ctx, text)
	return vector
}
