package driven

import "context"

// VectorIndex provides semantic similarity search operations.
//
// Every entry records the chunk version its embedding was computed from.
// An entry older than the chunk's known version is stale and never
// returned by Search.
type VectorIndex interface {
	// ProviderID returns the embedding space the index holds.
	ProviderID() string

	// Dimensions returns the vector size, 0 before the first Reset or load.
	Dimensions() int

	// Reset drops every entry and switches to a new embedding space.
	Reset(ctx context.Context, providerID string, dimensions int) error

	// Invalidate records that the chunk is now at version, excluding any
	// older entry from search until Put supplies a fresh one.
	Invalidate(chunkID string, version int64)

	// Put stores the embedding for a chunk version and persists it.
	// Embeddings for a version older than the known one are discarded.
	Put(ctx context.Context, chunkID string, version int64, embedding []float32) error

	// Remove drops a chunk's entry and persists the removal.
	// version is the version the chunk was deleted at; later Puts at or
	// below it are discarded. 0 removes without recording a deletion.
	Remove(ctx context.Context, chunkID string, version int64) error

	// Fresh reports whether a non-stale entry exists for exactly version.
	Fresh(chunkID string, version int64) bool

	// Search finds the k nearest fresh entries to the query vector.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// IDs returns the ids of all indexed chunks.
	IDs() []string

	// Len returns the number of stored entries, stale ones included.
	Len() int
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Similarity is the cosine similarity score (-1 to 1).
	Similarity float64

	// Version is the chunk version the embedding was computed from.
	Version int64
}
