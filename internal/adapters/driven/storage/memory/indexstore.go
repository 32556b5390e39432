package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// Ensure IndexStore implements the interface.
var _ driven.IndexStore = (*IndexStore)(nil)

// IndexStore is an in-memory implementation of driven.IndexStore.
// Entries are copied on the way in and out.
type IndexStore struct {
	mu       sync.RWMutex
	lexical  map[string]domain.LexicalEntry
	vectors  map[string]domain.VectorEntry
	provider string
}

// NewIndexStore creates a new in-memory index store.
func NewIndexStore() *IndexStore {
	return &IndexStore{
		lexical: make(map[string]domain.LexicalEntry),
		vectors: make(map[string]domain.VectorEntry),
	}
}

// SaveLexical upserts a lexical entry.
func (s *IndexStore) SaveLexical(_ context.Context, entry domain.LexicalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.TitleTF = copyCounts(entry.TitleTF)
	entry.BodyTF = copyCounts(entry.BodyTF)
	s.lexical[entry.ChunkID] = entry
	return nil
}

// DeleteLexical removes a lexical entry.
func (s *IndexStore) DeleteLexical(_ context.Context, chunkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lexical, chunkID)
	return nil
}

// LoadLexical returns every lexical entry.
func (s *IndexStore) LoadLexical(_ context.Context) ([]domain.LexicalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.LexicalEntry, 0, len(s.lexical))
	for _, e := range s.lexical {
		e.TitleTF = copyCounts(e.TitleTF)
		e.BodyTF = copyCounts(e.BodyTF)
		out = append(out, e)
	}
	return out, nil
}

// SaveVector upserts a vector entry.
func (s *IndexStore) SaveVector(_ context.Context, entry domain.VectorEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.Embedding = append([]float32(nil), entry.Embedding...)
	s.vectors[entry.ChunkID] = entry
	return nil
}

// DeleteVector removes a vector entry.
func (s *IndexStore) DeleteVector(_ context.Context, chunkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.vectors, chunkID)
	return nil
}

// LoadVectors returns every vector entry.
func (s *IndexStore) LoadVectors(_ context.Context) ([]domain.VectorEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.VectorEntry, 0, len(s.vectors))
	for _, e := range s.vectors {
		e.Embedding = append([]float32(nil), e.Embedding...)
		out = append(out, e)
	}
	return out, nil
}

// VectorProvider returns the provider id of the stored vectors.
func (s *IndexStore) VectorProvider(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.provider, nil
}

// ResetVectors drops all vectors and records a new provider id.
func (s *IndexStore) ResetVectors(_ context.Context, providerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = make(map[string]domain.VectorEntry)
	s.provider = providerID
	return nil
}

func copyCounts(m map[string]int) map[string]int {
	if m == nil {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
