// Package vector provides exact cosine-similarity search over chunk
// embeddings, persisted through a driven.IndexStore.
//
// Entries are stamped with the chunk version they were embedded from.
// Invalidate raises the known version of a chunk so older entries stop
// matching until a fresh embedding arrives.
package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-kb/internal/logger"
)

var _ driven.VectorIndex = (*Index)(nil)

type entry struct {
	version int64
	vec     []float32
	norm    float64
}

// Index implements driven.VectorIndex with a brute-force scan.
//
// writeMu serialises Put, Remove and Reset across the memory update and its
// persistence. mu guards the maps and is never held during store calls.
type Index struct {
	mu         sync.RWMutex
	writeMu    sync.Mutex
	store      driven.IndexStore
	providerID string
	dimension  int
	entries    map[string]entry
	known      map[string]int64

	// removed holds the version each deleted chunk was deleted at.
	removed map[string]int64
}

// New creates an empty index. store may be nil for a purely in-memory index.
func New(store driven.IndexStore) *Index {
	return &Index{
		store:   store,
		entries: make(map[string]entry),
		known:   make(map[string]int64),
		removed: make(map[string]int64),
	}
}

// Load replaces the in-memory state with the persisted vectors and provider.
func (idx *Index) Load(ctx context.Context) error {
	if idx.store == nil {
		return nil
	}
	providerID, err := idx.store.VectorProvider(ctx)
	if err != nil {
		return fmt.Errorf("loading vector provider: %w", err)
	}
	stored, err := idx.store.LoadVectors(ctx)
	if err != nil {
		return fmt.Errorf("loading vector index: %w", err)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.providerID = providerID
	idx.dimension = 0
	idx.entries = make(map[string]entry, len(stored))
	for _, e := range stored {
		if idx.dimension == 0 {
			idx.dimension = len(e.Embedding)
		}
		if len(e.Embedding) != idx.dimension {
			logger.Warn("vector index: dropping %s with %d dimensions, expected %d",
				e.ChunkID, len(e.Embedding), idx.dimension)
			continue
		}
		idx.entries[e.ChunkID] = newEntry(e.Version, e.Embedding)
	}
	logger.Debug("vector index loaded: %d entries, provider %q", len(idx.entries), providerID)
	return nil
}

// ProviderID returns the embedding space the index holds.
func (idx *Index) ProviderID() string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.providerID
}

// Dimensions returns the vector size.
func (idx *Index) Dimensions() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dimension
}

// Reset drops every vector and switches to a new embedding space.
// Known chunk versions survive a reset.
func (idx *Index) Reset(ctx context.Context, providerID string, dimensions int) error {
	if dimensions < 0 {
		return fmt.Errorf("%w: negative dimension %d", domain.ErrInvalidArgument, dimensions)
	}
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	if idx.store != nil {
		if err := idx.store.ResetVectors(ctx, providerID); err != nil {
			return fmt.Errorf("resetting vector index: %w", err)
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.providerID = providerID
	idx.dimension = dimensions
	idx.entries = make(map[string]entry)
	return nil
}

// Invalidate records that the chunk is now at version. Versions at or
// below a recorded deletion are ignored.
func (idx *Index) Invalidate(chunkID string, version int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if v, ok := idx.removed[chunkID]; ok && version <= v {
		return
	}
	if version > idx.known[chunkID] {
		idx.known[chunkID] = version
	}
}

// Put stores an embedding for a chunk version. An embedding computed from a
// version older than the known one, or at or below the version the chunk
// was deleted at, is discarded without error.
func (idx *Index) Put(ctx context.Context, chunkID string, version int64, embedding []float32) error {
	if len(embedding) == 0 {
		return fmt.Errorf("%w: empty embedding for %s", domain.ErrInvalidArgument, chunkID)
	}

	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	idx.mu.Lock()
	if idx.dimension == 0 {
		idx.dimension = len(embedding)
	}
	if len(embedding) != idx.dimension {
		dim := idx.dimension
		idx.mu.Unlock()
		return fmt.Errorf("%w: got %d, index holds %d", domain.ErrDimensionMismatch, len(embedding), dim)
	}
	if v, ok := idx.removed[chunkID]; ok && version <= v {
		idx.mu.Unlock()
		logger.Debug("vector index: discarding embedding for %s v%d, deleted at v%d", chunkID, version, v)
		return nil
	}
	if idx.known[chunkID] > version {
		idx.mu.Unlock()
		logger.Debug("vector index: discarding stale embedding for %s (v%d)", chunkID, version)
		return nil
	}
	idx.known[chunkID] = version
	e := newEntry(version, embedding)
	idx.entries[chunkID] = e
	idx.mu.Unlock()

	if idx.store == nil {
		return nil
	}
	err := idx.store.SaveVector(ctx, domain.VectorEntry{ChunkID: chunkID, Version: version, Embedding: e.vec})
	if err != nil {
		return fmt.Errorf("persisting vector entry %s: %w", chunkID, err)
	}
	return nil
}

// Remove drops a chunk's vector and forgets its known version. A non-zero
// version is the version the chunk was deleted at; later Puts at or below
// it are discarded.
func (idx *Index) Remove(ctx context.Context, chunkID string, version int64) error {
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	idx.mu.Lock()
	delete(idx.entries, chunkID)
	delete(idx.known, chunkID)
	if version > idx.removed[chunkID] {
		idx.removed[chunkID] = version
	}
	idx.mu.Unlock()

	if idx.store != nil {
		if err := idx.store.DeleteVector(ctx, chunkID); err != nil {
			return fmt.Errorf("removing vector entry %s: %w", chunkID, err)
		}
	}
	return nil
}

// Fresh reports whether the stored vector was embedded from exactly version
// and nothing newer is known.
func (idx *Index) Fresh(chunkID string, version int64) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	e, ok := idx.entries[chunkID]
	return ok && e.version == version && idx.known[chunkID] <= version
}

// Search returns the k fresh entries most similar to query.
// Ties are broken by higher version, then by chunk id.
func (idx *Index) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if k <= 0 || len(query) == 0 {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.dimension != 0 && len(query) != idx.dimension {
		return nil, fmt.Errorf("%w: query has %d, index holds %d", domain.ErrDimensionMismatch, len(query), idx.dimension)
	}
	qnorm := norm(query)
	if qnorm == 0 {
		return nil, nil
	}

	hits := make([]driven.VectorHit, 0, len(idx.entries))
	for id, e := range idx.entries {
		if idx.known[id] > e.version || e.norm == 0 {
			continue
		}
		hits = append(hits, driven.VectorHit{
			ChunkID:    id,
			Similarity: dot(query, e.vec) / (qnorm * e.norm),
			Version:    e.version,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		if hits[i].Version != hits[j].Version {
			return hits[i].Version > hits[j].Version
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// IDs returns the ids of all stored vectors.
func (idx *Index) IDs() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	ids := make([]string, 0, len(idx.entries))
	for id := range idx.entries {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of stored vectors, stale ones included.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

func newEntry(version int64, vec []float32) entry {
	cp := make([]float32, len(vec))
	copy(cp, vec)
	return entry{version: version, vec: cp, norm: norm(cp)}
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}
