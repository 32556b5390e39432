package driven

import (
	"context"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// LexicalIndex provides keyword search over chunk titles and bodies.
// Entries are keyed by chunk id and stamped with the chunk version
// they were built from.
type LexicalIndex interface {
	// Put indexes or re-indexes a chunk and persists the entry.
	// documentTitle is indexed with the chunk's title.
	Put(ctx context.Context, chunk domain.Chunk, documentTitle string) error

	// Remove drops a chunk from the index and from persistence.
	// version is the version the chunk was deleted at; later Puts at or
	// below it are ignored. 0 removes without recording a deletion.
	Remove(ctx context.Context, chunkID string, version int64) error

	// Version returns the chunk version an entry was built from.
	Version(chunkID string) (int64, bool)

	// Search ranks chunks against the query and returns at most k hits,
	// best first.
	Search(ctx context.Context, query string, k int) ([]SearchHit, error)

	// IDs returns the ids of all indexed chunks.
	IDs() []string

	// Len returns the number of indexed chunks.
	Len() int
}

// SearchHit represents a lexical search result.
type SearchHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Score is the BM25F relevance score.
	Score float64

	// Version is the chunk version the entry was built from.
	Version int64
}
