package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestAIProvider_IsValid tests provider recognition
func TestAIProvider_IsValid(t *testing.T) {
	assert.True(t, AIProviderOllama.IsValid())
	assert.True(t, AIProviderOpenAI.IsValid())
	assert.False(t, AIProvider("").IsValid())
	assert.False(t, AIProvider("anthropic").IsValid())
}

// TestAIProvider_Description tests human-readable names
func TestAIProvider_Description(t *testing.T) {
	assert.Equal(t, "Ollama (local)", AIProviderOllama.Description())
	assert.Equal(t, "OpenAI (cloud)", AIProviderOpenAI.Description())
	assert.Equal(t, "Unknown", AIProvider("x").Description())
}

// TestEmbeddingSettings_IsConfigured tests configuration checks
func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings EmbeddingSettings
		expected bool
	}{
		{"empty", EmbeddingSettings{}, false},
		{"ollama without key", EmbeddingSettings{Provider: AIProviderOllama}, true},
		{"openai without key", EmbeddingSettings{Provider: AIProviderOpenAI}, false},
		{"openai with key", EmbeddingSettings{Provider: AIProviderOpenAI, APIKey: "sk-test"}, true},
		{"unknown provider", EmbeddingSettings{Provider: "nope"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.settings.IsConfigured())
		})
	}
}

// TestEmbeddingSettings_ProviderID tests embedding space identity
func TestEmbeddingSettings_ProviderID(t *testing.T) {
	s := EmbeddingSettings{Provider: AIProviderOllama, Model: "nomic-embed-text"}
	assert.Equal(t, "ollama:nomic-embed-text:768", s.ProviderID())

	s.Dimensions = 512
	assert.Equal(t, "ollama:nomic-embed-text:512", s.ProviderID())

	assert.Empty(t, EmbeddingSettings{}.ProviderID())
}

// TestDefaultAppSettings tests defaults
func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.Equal(t, 60, s.Search.RRFK)
	assert.Equal(t, DefaultResolveLimit, s.Search.DefaultLimit)
	assert.InDelta(t, 1.2, s.Lexical.K1, 1e-9)
	assert.InDelta(t, 0.75, s.Lexical.B, 1e-9)
	assert.Greater(t, s.Lexical.TitleWeight, s.Lexical.BodyWeight)
	assert.False(t, s.Embedding.IsConfigured())
	assert.Positive(t, s.Embedding.BatchSize)
}

// TestDefaultEmbeddingModels tests every provider has a known model
func TestDefaultEmbeddingModels(t *testing.T) {
	dims := EmbeddingDimensions()
	for _, p := range AllEmbeddingProviders() {
		model, ok := DefaultEmbeddingModels()[p]
		assert.True(t, ok, p)
		assert.Positive(t, dims[model], model)
	}
}
