package driven

import (
	"context"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// ChunkStore persists documents and their chunks.
// It is the single source of truth: indexes are derived from it.
//
// Deleted documents and chunks are soft-deleted. Every read method treats
// them as absent and returns domain.ErrNotFound.
type ChunkStore interface {
	// CreateDocument stores a document and its chunk drafts in one transaction.
	// Returns domain.ErrAlreadyExists if a live document has the same title or filename.
	CreateDocument(ctx context.Context, doc domain.Document, drafts []domain.ChunkDraft) ([]domain.Chunk, error)

	// GetDocument retrieves a live document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// GetDocumentByTitle retrieves a live document by title.
	GetDocumentByTitle(ctx context.Context, title string) (*domain.Document, error)

	// GetDocumentByFilename retrieves a live document by filename.
	GetDocumentByFilename(ctx context.Context, filename string) (*domain.Document, error)

	// ListDocuments returns all live documents ordered by title.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// DeleteDocument soft-deletes a document and all its live chunks in one
	// transaction. Returns the chunks that were deleted.
	DeleteDocument(ctx context.Context, id string) ([]domain.Chunk, error)

	// ReplaceDocument soft-deletes the document oldID with its live chunks
	// and stores doc with its drafts, all in one transaction. On error
	// nothing changes. Returns the deleted chunks and the created chunks.
	ReplaceDocument(
		ctx context.Context, oldID string, doc domain.Document, drafts []domain.ChunkDraft,
	) (removed, created []domain.Chunk, err error)

	// AddChunks appends drafts after the document's last ordinal.
	AddChunks(ctx context.Context, documentID string, drafts []domain.ChunkDraft) ([]domain.Chunk, error)

	// GetChunk retrieves a live chunk by ID.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// UpdateChunk replaces a chunk body and increments its version atomically.
	// When expectedVersion is non-zero and differs from the stored version,
	// returns domain.ErrConflict and changes nothing.
	UpdateChunk(ctx context.Context, id string, expectedVersion int64, body string) (*domain.Chunk, error)

	// DeleteChunk soft-deletes a chunk and increments its version.
	DeleteChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// ListChunks returns a document's live chunks in ordinal order.
	ListChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// ListChunksByPathPrefix returns the live chunks of a document whose
	// heading path starts with prefix, in ordinal order.
	// Returns domain.ErrNotFound when nothing matches.
	ListChunksByPathPrefix(ctx context.Context, documentID string, prefix []string) ([]domain.Chunk, error)

	// ListLiveChunks returns every live chunk of every live document.
	ListLiveChunks(ctx context.Context) ([]domain.Chunk, error)

	// Purge permanently removes soft-deleted documents and chunks.
	// Returns the number of chunks removed.
	Purge(ctx context.Context) (int, error)
}

// IndexStore persists index entries so indexes survive restarts
// without re-embedding the corpus.
type IndexStore interface {
	// SaveLexical upserts the lexical entry for a chunk.
	SaveLexical(ctx context.Context, entry domain.LexicalEntry) error

	// DeleteLexical removes the lexical entry for a chunk. Missing is not an error.
	DeleteLexical(ctx context.Context, chunkID string) error

	// LoadLexical returns every stored lexical entry.
	LoadLexical(ctx context.Context) ([]domain.LexicalEntry, error)

	// SaveVector upserts the vector entry for a chunk.
	SaveVector(ctx context.Context, entry domain.VectorEntry) error

	// DeleteVector removes the vector entry for a chunk. Missing is not an error.
	DeleteVector(ctx context.Context, chunkID string) error

	// LoadVectors returns every stored vector entry.
	LoadVectors(ctx context.Context) ([]domain.VectorEntry, error)

	// VectorProvider returns the provider id the stored vectors belong to.
	// Empty when no vectors were ever stored.
	VectorProvider(ctx context.Context) (string, error)

	// ResetVectors removes all vector entries and records a new provider id.
	ResetVectors(ctx context.Context, providerID string) error
}
