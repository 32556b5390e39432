package driven

import (
	"context"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// ChunkListener is notified synchronously of chunk store mutations.
// A mutation is acknowledged to its caller only after the listener returns.
type ChunkListener interface {
	// ChunksUpserted is called after chunks are created or edited.
	ChunksUpserted(ctx context.Context, chunks []domain.Chunk) (domain.IndexReport, error)

	// ChunksDeleted is called after chunks are soft-deleted, with each
	// chunk at the version it was deleted at.
	ChunksDeleted(ctx context.Context, chunks []domain.Chunk) (domain.IndexReport, error)
}
