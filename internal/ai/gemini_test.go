package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// Test configuration validation and defaults in NewGeminiClient
func TestNewGeminiClient_Configuration(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name               string
		config             *ClientConfig
		expectedEmbedModel string
		expectedDim        int
		expectedLocation   string
	}{
		{
			name: "all defaults for project credentials",
			config: &ClientConfig{
				ProjectID: "test-project",
			},
			expectedEmbedModel: "text-embedding-005",
			expectedDim:        DefaultDim,
			expectedLocation:   "us-central1",
		},
		{
			name: "explicit values preserved",
			config: &ClientConfig{
				ProjectID:  "test-project",
				EmbedModel: "custom-embed-model",
				Dim:        768,
				Location:   "europe-west4",
			},
			expectedEmbedModel: "custom-embed-model",
			expectedDim:        768,
			expectedLocation:   "europe-west4",
		},
		{
			name: "API key skips location default",
			config: &ClientConfig{
				APIKey: "test-api-key",
			},
			expectedEmbedModel: "text-embedding-005",
			expectedDim:        DefaultDim,
			expectedLocation:   "",
		},
		{
			name: "zero dimension falls back",
			config: &ClientConfig{
				ProjectID: "test-project",
				Dim:       0,
			},
			expectedEmbedModel: "text-embedding-005",
			expectedDim:        DefaultDim,
			expectedLocation:   "us-central1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Defaults are applied to the config before the genai client
			// is constructed, so they are observable even when the
			// construction itself fails without real credentials.
			_, err := NewGeminiClient(ctx, tt.config)
			if err != nil && !strings.Contains(err.Error(), "failed to create Gemini client") {
				t.Errorf("Expected Gemini client creation error, got: %v", err)
			}

			if tt.config.EmbedModel != tt.expectedEmbedModel {
				t.Errorf("Expected EmbedModel '%s', got '%s'", tt.expectedEmbedModel, tt.config.EmbedModel)
			}
			if tt.config.Dim != tt.expectedDim {
				t.Errorf("Expected Dim %d, got %d", tt.expectedDim, tt.config.Dim)
			}
			if tt.config.Location != tt.expectedLocation {
				t.Errorf("Expected Location '%s', got '%s'", tt.expectedLocation, tt.config.Location)
			}
		})
	}
}

// Test nil config handling
func TestNewGeminiClient_NilConfig(t *testing.T) {
	ctx := context.Background()

	_, err := NewGeminiClient(ctx, nil)
	if err == nil {
		t.Error("Expected error with nil config")
	}
	if !strings.Contains(err.Error(), "config cannot be nil") {
		t.Errorf("Expected 'config cannot be nil' error, got: %v", err)
	}
}

// Test Dim method with various configurations
func TestGeminiClient_Dim(t *testing.T) {
	tests := []struct {
		name        string
		configDim   int
		expectedDim int
	}{
		{"default dimension", DefaultDim, DefaultDim},
		{"custom dimension", 768, 768},
		{"small dimension", 256, 256},
		{"zero dimension", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &ClientConfig{
				APIKey: "test-key",
				Dim:    tt.configDim,
			}

			// Create a client struct directly for testing Dim method
			client := &GeminiClient{
				config: config,
				client: nil, // We don't need the actual client for this test
			}

			dim := client.Dim()
			if dim != tt.expectedDim {
				t.Errorf("Expected dimension %d, got %d", tt.expectedDim, dim)
			}
		})
	}
}

// Test interface compliance
func TestGeminiClient_InterfaceCompliance(t *testing.T) {
	// Verify GeminiClient implements Client interface
	var _ Client = &GeminiClient{}

	config := &ClientConfig{
		APIKey: "test-key",
		Dim:    512,
	}

	client := &GeminiClient{
		config: config,
		client: nil,
	}

	if client.Dim() != 512 {
		t.Errorf("Expected Dim() to return 512, got %d", client.Dim())
	}
}

// Test Embed with no credentials configured
func TestGeminiClient_EmbedNotConfigured(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		apiKey    string
		projectID string
	}{
		{"empty credentials", "", ""},
		{"whitespace API key", "   ", ""},
		{"whitespace project", "", "  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &GeminiClient{
				config: &ClientConfig{
					APIKey:     tt.apiKey,
					ProjectID:  tt.projectID,
					EmbedModel: "text-embedding-005",
					Dim:        DefaultDim,
				},
				client: nil, // The credential check fires before the client is touched
			}

			_, err := client.Embed(ctx, "test text")
			if err == nil {
				t.Fatal("Expected error with no credentials")
			}
			if !errors.Is(err, ErrNotConfigured) {
				t.Errorf("Expected ErrNotConfigured, got: %v", err)
			}
		})
	}
}
