package driven

import "github.com/custodia-labs/sercha-kb/internal/core/domain"

// AIConfigValidator validates embedding provider configurations by testing
// connectivity to the provider.
type AIConfigValidator interface {
	// ValidateEmbedding pings the configured provider.
	// Returns nil if the configuration is valid or not configured.
	ValidateEmbedding(config *domain.EmbeddingSettings) error
}
