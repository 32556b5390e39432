package driving

import (
	"context"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// CorpusService manages documents and chunks.
// Every mutation returns only after the indexes reflect it.
type CorpusService interface {
	// Import converts, chunks, stores and indexes a file.
	// Re-importing identical bytes is a no-op; changed bytes replace the document.
	Import(ctx context.Context, req domain.ImportRequest) (*domain.ImportResult, error)

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, documentID string) (*domain.Document, error)

	// ListDocuments returns all documents.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// DeleteDocument removes a document and its chunks from the store and indexes.
	DeleteDocument(ctx context.Context, documentID string) (domain.IndexReport, error)

	// AddChunks appends manually authored chunks to a document.
	AddChunks(ctx context.Context, documentID string, drafts []domain.ChunkDraft) ([]domain.Chunk, error)

	// GetChunk retrieves a chunk by ID.
	GetChunk(ctx context.Context, chunkID string) (*domain.Chunk, error)

	// ListChunks returns a document's chunks in ordinal order.
	ListChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// UpdateChunk replaces a chunk body. expectedVersion 0 skips the
	// optimistic check. Returns domain.ErrConflict on a stale version.
	UpdateChunk(ctx context.Context, chunkID string, expectedVersion int64, body string) (*domain.Chunk, error)

	// DeleteChunk removes a chunk from the store and indexes.
	DeleteChunk(ctx context.Context, chunkID string) error

	// Purge permanently removes soft-deleted rows.
	Purge(ctx context.Context) (int, error)
}

// IndexService exposes index maintenance.
type IndexService interface {
	// Reindex forces a chunk to be re-indexed from the store.
	Reindex(ctx context.Context, chunkID string) (domain.IndexReport, error)

	// RepairStale re-indexes every chunk whose entries are missing or stale
	// and drops entries for chunks that no longer exist.
	RepairStale(ctx context.Context) (domain.IndexReport, error)

	// Rebuild discards all vectors and re-embeds the corpus.
	Rebuild(ctx context.Context) (domain.IndexReport, error)

	// Stats reports index sizes.
	Stats() IndexStats
}

// IndexStats describes the current index state.
type IndexStats struct {
	LexicalEntries int
	VectorEntries  int
	ProviderID     string
}
