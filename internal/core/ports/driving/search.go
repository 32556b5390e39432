package driving

import (
	"context"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// ResolutionService maps free-text questions to ranked topics.
// This is stage one of the two-stage protocol (resolve-keywords).
type ResolutionService interface {
	// Resolve returns topic candidates without body text.
	// Returns domain.ErrInvalidArgument for a blank query.
	Resolve(ctx context.Context, req domain.ResolveRequest) (*domain.ResolveResult, error)
}

// RetrievalService returns the full content under topics.
// This is stage two of the two-stage protocol (get-docs).
type RetrievalService interface {
	// GetDocs answers each key independently, in request order.
	// Keys are chunk ids or topic paths. Returns domain.ErrInvalidArgument
	// for an empty key list.
	GetDocs(ctx context.Context, keys []string) ([]domain.DocResult, error)

	// Export renders a whole document back to Markdown.
	Export(ctx context.Context, documentID string) (string, error)
}
