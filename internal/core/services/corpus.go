package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-kb/internal/logger"
)

// Ensure CorpusService implements the interface.
var _ driving.CorpusService = (*CorpusService)(nil)

// CorpusService is the front door to the chunk store. Every mutation is
// passed to the listener before it is acknowledged.
type CorpusService struct {
	store      driven.ChunkStore
	converters driven.ConverterRegistry
	pipeline   driven.PostProcessorPipeline
	listener   driven.ChunkListener
	now        func() time.Time
}

// NewCorpusService creates a corpus service.
func NewCorpusService(
	store driven.ChunkStore,
	converters driven.ConverterRegistry,
	pipeline driven.PostProcessorPipeline,
	listener driven.ChunkListener,
) *CorpusService {
	return &CorpusService{
		store:      store,
		converters: converters,
		pipeline:   pipeline,
		listener:   listener,
		now:        time.Now,
	}
}

// Import converts, chunks, stores and indexes one file.
func (s *CorpusService) Import(ctx context.Context, req domain.ImportRequest) (*domain.ImportResult, error) {
	filename := filepath.Base(strings.TrimSpace(req.Filename))
	if filename == "" || filename == "." || domain.DocumentTitle(filename) == "" {
		return nil, fmt.Errorf("%w: filename is required", domain.ErrInvalidArgument)
	}
	logger.Section("Import " + filename)

	conv, err := s.converters.ForFile(filename)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(req.Content)
	hash := hex.EncodeToString(sum[:])

	existing, err := s.store.GetDocumentByFilename(ctx, filename)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("lookup document: %w", err)
	}
	if existing != nil && existing.SourceHash == hash {
		chunks, err := s.store.ListChunks(ctx, existing.ID)
		if err != nil {
			return nil, fmt.Errorf("list chunks: %w", err)
		}
		logger.Info("%s unchanged, skipping", filename)
		return &domain.ImportResult{Document: *existing, Chunks: len(chunks), Unchanged: true}, nil
	}

	text, err := conv.Convert(ctx, filename, req.Content)
	if err != nil {
		return nil, fmt.Errorf("convert %s with %s: %w", filename, conv.Name(), err)
	}
	drafts, err := s.pipeline.Process(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", filename, err)
	}
	logger.Debug("%s: %d chunks", filename, len(drafts))

	now := s.now()
	doc := domain.Document{
		ID:         uuid.New().String(),
		Filename:   filename,
		Title:      domain.DocumentTitle(filename),
		SourceHash: hash,
		ImportedAt: now,
		UpdatedAt:  now,
	}

	result := &domain.ImportResult{}
	var chunks []domain.Chunk
	if existing != nil {
		// The old version stays live until the new one is stored.
		removed, created, err := s.store.ReplaceDocument(ctx, existing.ID, doc, drafts)
		if err != nil {
			return nil, fmt.Errorf("replace %s: %w", filename, err)
		}
		report, err := s.listener.ChunksDeleted(ctx, removed)
		result.Index.Add(report)
		if err != nil {
			return nil, fmt.Errorf("unindex %s: %w", filename, err)
		}
		result.Replaced = true
		chunks = created
	} else {
		chunks, err = s.store.CreateDocument(ctx, doc, drafts)
		if err != nil {
			return nil, fmt.Errorf("store %s: %w", filename, err)
		}
	}

	report, err := s.listener.ChunksUpserted(ctx, chunks)
	result.Index.Add(report)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", filename, err)
	}

	result.Document = doc
	result.Chunks = len(chunks)
	logger.Info("Imported %s: %d chunks (%d vector pending)", filename, len(chunks), report.VectorPending)
	return result, nil
}

// GetDocument retrieves a document by ID.
func (s *CorpusService) GetDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	return s.store.GetDocument(ctx, documentID)
}

// ListDocuments returns all live documents.
func (s *CorpusService) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	return s.store.ListDocuments(ctx)
}

// DeleteDocument soft-deletes a document and its chunks and removes them
// from the indexes.
func (s *CorpusService) DeleteDocument(ctx context.Context, documentID string) (domain.IndexReport, error) {
	chunks, err := s.store.DeleteDocument(ctx, documentID)
	if err != nil {
		return domain.IndexReport{}, fmt.Errorf("delete document: %w", err)
	}
	return s.listener.ChunksDeleted(ctx, chunks)
}

// AddChunks appends manually authored chunks to a document.
func (s *CorpusService) AddChunks(
	ctx context.Context, documentID string, drafts []domain.ChunkDraft,
) ([]domain.Chunk, error) {
	if len(drafts) == 0 {
		return nil, fmt.Errorf("%w: no chunks to add", domain.ErrInvalidArgument)
	}
	normalised := make([]domain.ChunkDraft, len(drafts))
	for i, d := range drafts {
		nd, err := s.normaliseDraft(ctx, d)
		if err != nil {
			return nil, err
		}
		normalised[i] = nd
	}

	chunks, err := s.store.AddChunks(ctx, documentID, normalised)
	if err != nil {
		return nil, fmt.Errorf("add chunks: %w", err)
	}
	if _, err := s.listener.ChunksUpserted(ctx, chunks); err != nil {
		return nil, fmt.Errorf("index chunks: %w", err)
	}
	return chunks, nil
}

// normaliseDraft checks a hand-written draft: a heading needs a path and a
// marker level between 1 and 6, and no body may contain a heading line.
func (s *CorpusService) normaliseDraft(ctx context.Context, d domain.ChunkDraft) (domain.ChunkDraft, error) {
	if len(d.HeadingPath) == 0 {
		if d.MarkerLevel != 0 || d.Title != "" {
			return d, fmt.Errorf("%w: a titled chunk needs a heading path", domain.ErrInvalidArgument)
		}
	} else {
		leaf := d.HeadingPath[len(d.HeadingPath)-1]
		if strings.TrimSpace(leaf) == "" {
			return d, fmt.Errorf("%w: empty heading in path", domain.ErrInvalidArgument)
		}
		if d.Title == "" {
			d.Title = leaf
		}
		if d.MarkerLevel == 0 {
			d.MarkerLevel = min(len(d.HeadingPath), 6)
		}
		if d.MarkerLevel < 1 || d.MarkerLevel > 6 {
			return d, fmt.Errorf("%w: marker level %d out of range", domain.ErrInvalidArgument, d.MarkerLevel)
		}
	}
	if err := s.checkBody(ctx, d.Body); err != nil {
		return d, err
	}
	return d, nil
}

// checkBody rejects text the chunker would split at a heading.
func (s *CorpusService) checkBody(ctx context.Context, body string) error {
	if body == "" {
		return nil
	}
	drafts, err := s.pipeline.Process(ctx, body)
	if err != nil {
		return fmt.Errorf("check body: %w", err)
	}
	for _, d := range drafts {
		if d.Level() > 0 {
			return fmt.Errorf("%w: body contains heading %q", domain.ErrInvalidArgument, d.Title)
		}
	}
	return nil
}

// GetChunk retrieves a live chunk.
func (s *CorpusService) GetChunk(ctx context.Context, chunkID string) (*domain.Chunk, error) {
	return s.store.GetChunk(ctx, chunkID)
}

// ListChunks returns a document's live chunks in ordinal order.
func (s *CorpusService) ListChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	return s.store.ListChunks(ctx, documentID)
}

// UpdateChunk replaces a chunk body and re-indexes it before returning.
func (s *CorpusService) UpdateChunk(
	ctx context.Context, chunkID string, expectedVersion int64, body string,
) (*domain.Chunk, error) {
	if expectedVersion < 0 {
		return nil, fmt.Errorf("%w: negative version", domain.ErrInvalidArgument)
	}
	if err := s.checkBody(ctx, body); err != nil {
		return nil, err
	}

	chunk, err := s.store.UpdateChunk(ctx, chunkID, expectedVersion, body)
	if err != nil {
		return nil, fmt.Errorf("update chunk: %w", err)
	}
	if _, err := s.listener.ChunksUpserted(ctx, []domain.Chunk{*chunk}); err != nil {
		return nil, fmt.Errorf("index chunk: %w", err)
	}
	return chunk, nil
}

// DeleteChunk soft-deletes a chunk and removes it from the indexes.
func (s *CorpusService) DeleteChunk(ctx context.Context, chunkID string) error {
	deleted, err := s.store.DeleteChunk(ctx, chunkID)
	if err != nil {
		return fmt.Errorf("delete chunk: %w", err)
	}
	if _, err := s.listener.ChunksDeleted(ctx, []domain.Chunk{*deleted}); err != nil {
		return fmt.Errorf("unindex chunk: %w", err)
	}
	return nil
}

// Purge permanently removes soft-deleted rows.
func (s *CorpusService) Purge(ctx context.Context) (int, error) {
	n, err := s.store.Purge(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge: %w", err)
	}
	logger.Info("Purged %d deleted rows", n)
	return n, nil
}
