package ai

import (
	"context"
	"crypto/sha256"
	"strings"
)

// LocalClient derives embeddings purely from a SHA-256 digest of the
// input, cycling the digest bytes to fill the vector and mapping each
// byte into [-1, 1]. It needs no credentials, never fails, and returns
// bit-identical vectors for identical input across process restarts.
// The vectors carry no semantic meaning; the point is a dependable
// stand-in when no remote provider is reachable or configured.
type LocalClient struct {
	dim int
}

func NewLocalClient(dim int) *LocalClient {
	if dim <= 0 {
		dim = DefaultDim
	}
	return &LocalClient{dim: dim}
}

// Embed generates the deterministic vector. Empty or whitespace-only
// text maps to the all-zero vector.
func (c *LocalClient) Embed(_ context.Context, text string) ([]float32, error) {
	vector := make([]float32, c.dim)
	if strings.TrimSpace(text) == "" {
		return vector, nil
	}

	digest := sha256.Sum256([]byte(text))
	for i := range vector {
		b := digest[i%len(digest)]
		vector[i] = (float32(b)/255.0)*2 - 1
	}
	return vector, nil
}

func (c *LocalClient) Dim() int {
	return c.dim
}
