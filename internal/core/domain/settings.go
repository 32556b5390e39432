package domain

import "fmt"

const unknownDescription = "Unknown"

// AIProvider identifies an embedding service provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API or any OpenAI-compatible endpoint.
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider. Empty disables vector search.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (Ollama, or an OpenAI-compatible server).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions overrides the model's vector size. Zero uses the known size.
	Dimensions int

	// BatchSize is the number of texts per embedding request.
	BatchSize int

	// RequestsPerMinute caps the provider call rate.
	RequestsPerMinute int

	// MaxRetries bounds retries of a failed provider call.
	MaxRetries int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// ResolvedDimensions returns the configured or known vector size.
func (e EmbeddingSettings) ResolvedDimensions() int {
	if e.Dimensions > 0 {
		return e.Dimensions
	}
	return EmbeddingDimensions()[e.Model]
}

// ProviderID identifies the embedding space produced by these settings.
// Vectors from different provider ids are never comparable.
func (e EmbeddingSettings) ProviderID() string {
	if !e.IsConfigured() {
		return ""
	}
	return fmt.Sprintf("%s:%s:%d", e.Provider, e.Model, e.ResolvedDimensions())
}

// SearchSettings holds resolution behaviour configuration.
type SearchSettings struct {
	// RRFK is the reciprocal rank fusion constant.
	RRFK int

	// DefaultLimit is the number of topics returned when none is requested.
	DefaultLimit int

	// CandidateMultiplier scales the per-index candidate depth from the limit.
	CandidateMultiplier int
}

// LexicalSettings holds BM25F parameters.
type LexicalSettings struct {
	// K1 controls term frequency saturation.
	K1 float64

	// B controls length normalisation.
	B float64

	// TitleWeight scales matches in the heading title.
	TitleWeight float64

	// BodyWeight scales matches in the body.
	BodyWeight float64
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Search holds resolution settings.
	Search SearchSettings

	// Lexical holds lexical index settings.
	Lexical LexicalSettings

	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// The embedding provider is left unconfigured; resolution then runs
// lexical-only until one is set.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Search: SearchSettings{
			RRFK:                60,
			DefaultLimit:        DefaultResolveLimit,
			CandidateMultiplier: 4,
		},
		Lexical: LexicalSettings{
			K1:          1.2,
			B:           0.75,
			TitleWeight: 2.5,
			BodyWeight:  1.0,
		},
		Embedding: EmbeddingSettings{
			BatchSize:         16,
			RequestsPerMinute: 300,
			MaxRetries:        3,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		"bge-m3":            1024,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
