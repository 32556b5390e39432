package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore is an in-memory implementation of driven.ChunkStore.
// Used for tests and for the --ephemeral CLI mode.
type ChunkStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	chunks    map[string]domain.Chunk
	// order holds each document's chunk ids by ordinal, deleted ones included.
	order map[string][]string
}

// NewChunkStore creates a new in-memory chunk store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string]domain.Chunk),
		order:     make(map[string][]string),
	}
}

// CreateDocument stores a document and its chunks.
func (s *ChunkStore) CreateDocument(_ context.Context, doc domain.Document, drafts []domain.ChunkDraft) ([]domain.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUniqueLocked(doc, ""); err != nil {
		return nil, err
	}
	return s.createLocked(doc, drafts, time.Now().UTC()), nil
}

// ReplaceDocument swaps oldID for doc under a single lock.
func (s *ChunkStore) ReplaceDocument(
	_ context.Context, oldID string, doc domain.Document, drafts []domain.ChunkDraft,
) ([]domain.Chunk, []domain.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.documentLocked(oldID); err != nil {
		return nil, nil, err
	}
	if err := s.checkUniqueLocked(doc, oldID); err != nil {
		return nil, nil, err
	}
	now := time.Now().UTC()
	removed := s.deleteLocked(oldID, now)
	return removed, s.createLocked(doc, drafts, now), nil
}

// checkUniqueLocked rejects doc when a live document other than except
// has the same title or filename.
func (s *ChunkStore) checkUniqueLocked(doc domain.Document, except string) error {
	for id, d := range s.documents {
		if id == except || d.Deleted {
			continue
		}
		if d.Title == doc.Title || d.Filename == doc.Filename {
			return fmt.Errorf("document %q: %w", doc.Title, domain.ErrAlreadyExists)
		}
	}
	return nil
}

func (s *ChunkStore) createLocked(doc domain.Document, drafts []domain.ChunkDraft, now time.Time) []domain.Chunk {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.ImportedAt.IsZero() {
		doc.ImportedAt = now
	}
	doc.UpdatedAt = now
	doc.Deleted = false
	s.documents[doc.ID] = doc

	return s.appendLocked(doc.ID, drafts, now)
}

// AddChunks appends drafts after the document's last ordinal.
func (s *ChunkStore) AddChunks(_ context.Context, documentID string, drafts []domain.ChunkDraft) ([]domain.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.documentLocked(documentID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	doc.UpdatedAt = now
	s.documents[documentID] = *doc
	return s.appendLocked(documentID, drafts, now), nil
}

func (s *ChunkStore) appendLocked(documentID string, drafts []domain.ChunkDraft, now time.Time) []domain.Chunk {
	next := len(s.order[documentID])
	out := make([]domain.Chunk, 0, len(drafts))
	for i, d := range drafts {
		c := domain.Chunk{
			ID:          uuid.New().String(),
			DocumentID:  documentID,
			HeadingPath: append([]string(nil), d.HeadingPath...),
			Title:       d.Title,
			MarkerLevel: d.MarkerLevel,
			Body:        d.Body,
			Ordinal:     next + i,
			Version:     1,
			UpdatedAt:   now,
		}
		s.chunks[c.ID] = c
		s.order[documentID] = append(s.order[documentID], c.ID)
		out = append(out, c)
	}
	return out
}

// GetDocument retrieves a live document by ID.
func (s *ChunkStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.documentLocked(id)
}

func (s *ChunkStore) documentLocked(id string) (*domain.Document, error) {
	doc, ok := s.documents[id]
	if !ok || doc.Deleted {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return &doc, nil
}

// GetDocumentByTitle retrieves a live document by title.
func (s *ChunkStore) GetDocumentByTitle(_ context.Context, title string) (*domain.Document, error) {
	return s.findDocument(func(d domain.Document) bool { return d.Title == title }, title)
}

// GetDocumentByFilename retrieves a live document by filename.
func (s *ChunkStore) GetDocumentByFilename(_ context.Context, filename string) (*domain.Document, error) {
	return s.findDocument(func(d domain.Document) bool { return d.Filename == filename }, filename)
}

func (s *ChunkStore) findDocument(match func(domain.Document) bool, key string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.documents {
		if !d.Deleted && match(d) {
			return &d, nil
		}
	}
	return nil, fmt.Errorf("document %s: %w", key, domain.ErrNotFound)
}

// ListDocuments returns all live documents ordered by title.
func (s *ChunkStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]domain.Document, 0, len(s.documents))
	for _, d := range s.documents {
		if !d.Deleted {
			docs = append(docs, d)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Title < docs[j].Title })
	return docs, nil
}

// DeleteDocument soft-deletes a document and its live chunks.
func (s *ChunkStore) DeleteDocument(_ context.Context, id string) ([]domain.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.documentLocked(id); err != nil {
		return nil, err
	}
	return s.deleteLocked(id, time.Now().UTC()), nil
}

// deleteLocked soft-deletes a live document and its live chunks.
func (s *ChunkStore) deleteLocked(id string, now time.Time) []domain.Chunk {
	doc := s.documents[id]
	var deleted []domain.Chunk
	for _, cid := range s.order[id] {
		c, ok := s.chunks[cid]
		if !ok || c.Deleted {
			continue
		}
		c.Deleted = true
		c.Version++
		c.UpdatedAt = now
		s.chunks[cid] = c
		deleted = append(deleted, c)
	}

	doc.Deleted = true
	doc.UpdatedAt = now
	s.documents[id] = doc
	return deleted
}

// GetChunk retrieves a live chunk by ID.
func (s *ChunkStore) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chunkLocked(id)
}

func (s *ChunkStore) chunkLocked(id string) (*domain.Chunk, error) {
	c, ok := s.chunks[id]
	if !ok || c.Deleted {
		return nil, fmt.Errorf("chunk %s: %w", id, domain.ErrNotFound)
	}
	return &c, nil
}

// UpdateChunk replaces a chunk body with a version compare-and-swap.
func (s *ChunkStore) UpdateChunk(_ context.Context, id string, expectedVersion int64, body string) (*domain.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.chunkLocked(id)
	if err != nil {
		return nil, err
	}
	if expectedVersion != 0 && c.Version != expectedVersion {
		return nil, fmt.Errorf("chunk %s: %w", id, domain.ErrConflict)
	}
	c.Body = body
	c.Version++
	c.UpdatedAt = time.Now().UTC()
	s.chunks[id] = *c
	s.touchLocked(c.DocumentID, c.UpdatedAt)
	return c, nil
}

// DeleteChunk soft-deletes a chunk and increments its version.
func (s *ChunkStore) DeleteChunk(_ context.Context, id string) (*domain.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.chunkLocked(id)
	if err != nil {
		return nil, err
	}
	c.Deleted = true
	c.Version++
	c.UpdatedAt = time.Now().UTC()
	s.chunks[id] = *c
	s.touchLocked(c.DocumentID, c.UpdatedAt)
	return c, nil
}

func (s *ChunkStore) touchLocked(documentID string, now time.Time) {
	if doc, ok := s.documents[documentID]; ok {
		doc.UpdatedAt = now
		s.documents[documentID] = doc
	}
}

// ListChunks returns a document's live chunks in ordinal order.
func (s *ChunkStore) ListChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectLocked(documentID, nil), nil
}

// ListChunksByPathPrefix returns live chunks under a heading path prefix.
func (s *ChunkStore) ListChunksByPathPrefix(_ context.Context, documentID string, prefix []string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.collectLocked(documentID, prefix)
	if len(out) == 0 {
		return nil, fmt.Errorf("path %v: %w", prefix, domain.ErrNotFound)
	}
	return out, nil
}

func (s *ChunkStore) collectLocked(documentID string, prefix []string) []domain.Chunk {
	var out []domain.Chunk
	for _, cid := range s.order[documentID] {
		c, ok := s.chunks[cid]
		if ok && !c.Deleted && c.HasPrefix(prefix) {
			out = append(out, c)
		}
	}
	return out
}

// ListLiveChunks returns every live chunk of every live document.
func (s *ChunkStore) ListLiveChunks(_ context.Context) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.order))
	for id := range s.order {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []domain.Chunk
	for _, id := range ids {
		if doc, ok := s.documents[id]; ok && !doc.Deleted {
			out = append(out, s.collectLocked(id, nil)...)
		}
	}
	return out, nil
}

// Purge permanently removes soft-deleted documents and chunks.
func (s *ChunkStore) Purge(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, c := range s.chunks {
		if c.Deleted {
			delete(s.chunks, id)
			removed++
		}
	}
	for id, doc := range s.documents {
		if doc.Deleted {
			delete(s.documents, id)
			delete(s.order, id)
		}
	}
	// Ordinals stay reserved so AddChunks never reuses one.
	return removed, nil
}
