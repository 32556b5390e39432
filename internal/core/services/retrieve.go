package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-kb/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// RetrievalService answers get-docs by reassembling topic content from the
// chunk store.
type RetrievalService struct {
	store driven.ChunkStore
}

// NewRetrievalService creates a retrieval service.
func NewRetrievalService(store driven.ChunkStore) *RetrievalService {
	return &RetrievalService{store: store}
}

// GetDocs returns the content under each key. Keys are chunk ids or topic
// paths ("Doc > Heading > Sub"). A key that resolves to nothing yields a
// not_found result without affecting the others.
func (s *RetrievalService) GetDocs(ctx context.Context, keys []string) ([]domain.DocResult, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: at least one topic id is required", domain.ErrInvalidArgument)
	}

	results := make([]domain.DocResult, 0, len(keys))
	for _, key := range keys {
		res, err := s.getDoc(ctx, key)
		if errors.Is(err, domain.ErrNotFound) {
			logger.Debug("get-docs: %q not found", key)
			results = append(results, domain.DocResult{TopicID: key, Status: domain.DocStatusNotFound})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get-docs %q: %w", key, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *RetrievalService) getDoc(ctx context.Context, key string) (domain.DocResult, error) {
	doc, prefix, err := s.resolveKey(ctx, key)
	if err != nil {
		return domain.DocResult{}, err
	}

	chunks, err := s.store.ListChunksByPathPrefix(ctx, doc.ID, prefix)
	if err != nil {
		return domain.DocResult{}, err
	}

	return domain.DocResult{
		TopicID:     key,
		HeadingPath: append([]string{doc.Title}, prefix...),
		Content:     render(chunks),
		Status:      domain.DocStatusOK,
	}, nil
}

// resolveKey maps a key to a document and a heading path prefix within it.
// Chunk ids take precedence over topic paths.
func (s *RetrievalService) resolveKey(ctx context.Context, key string) (*domain.Document, []string, error) {
	chunk, err := s.store.GetChunk(ctx, key)
	switch {
	case err == nil:
		doc, err := s.store.GetDocument(ctx, chunk.DocumentID)
		if err != nil {
			return nil, nil, err
		}
		return doc, chunk.HeadingPath, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, nil, err
	}

	path := domain.ParseTopicPath(key)
	if len(path) == 0 {
		return nil, nil, domain.ErrNotFound
	}
	doc, err := s.store.GetDocumentByTitle(ctx, path[0])
	if err != nil {
		return nil, nil, err
	}
	return doc, path[1:], nil
}

// Export renders a whole document with heading markers re-inserted.
func (s *RetrievalService) Export(ctx context.Context, documentID string) (string, error) {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return "", fmt.Errorf("get document: %w", err)
	}
	chunks, err := s.store.ListChunks(ctx, documentID)
	if err != nil {
		return "", fmt.Errorf("list chunks: %w", err)
	}
	return render(chunks), nil
}

func render(chunks []domain.Chunk) string {
	var b strings.Builder
	for i := range chunks {
		b.WriteString(chunks[i].Render())
	}
	return b.String()
}
