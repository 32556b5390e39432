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

// Ensure IndexMaintainer implements the interfaces.
var (
	_ driven.ChunkListener = (*IndexMaintainer)(nil)
	_ driving.IndexService = (*IndexMaintainer)(nil)
	_ Reindexer            = (*IndexMaintainer)(nil)
)

// defaultEmbedBatchSize is the number of chunks embedded per provider call.
const defaultEmbedBatchSize = 16

// IndexMaintainer keeps the lexical and vector indexes consistent with the
// chunk store. It is notified synchronously of every mutation.
type IndexMaintainer struct {
	store      driven.ChunkStore
	lexical    driven.LexicalIndex
	vector     driven.VectorIndex
	embedder   driven.EmbeddingService
	providerID string
	batchSize  int
}

// NewIndexMaintainer creates an index maintainer.
// The embedder is optional; providerID names its embedding space and must
// be empty when embedder is nil.
func NewIndexMaintainer(
	store driven.ChunkStore,
	lexical driven.LexicalIndex,
	vector driven.VectorIndex,
	embedder driven.EmbeddingService,
	providerID string,
	batchSize int,
) *IndexMaintainer {
	if batchSize <= 0 {
		batchSize = defaultEmbedBatchSize
	}
	return &IndexMaintainer{
		store:      store,
		lexical:    lexical,
		vector:     vector,
		embedder:   embedder,
		providerID: providerID,
		batchSize:  batchSize,
	}
}

// ChunksUpserted indexes created or edited chunks. Chunks already fresh in
// both indexes are skipped. Embedding failures leave chunks lexically
// searchable and are reported as VectorPending.
func (m *IndexMaintainer) ChunksUpserted(ctx context.Context, chunks []domain.Chunk) (domain.IndexReport, error) {
	var report domain.IndexReport
	var pending []domain.Chunk
	titles := make(map[string]string)

	for i := range chunks {
		c := chunks[i]
		if c.Deleted {
			r, err := m.ChunksDeleted(ctx, []domain.Chunk{c})
			if err != nil {
				return report, err
			}
			report.Add(r)
			continue
		}

		lexFresh := false
		if v, ok := m.lexical.Version(c.ID); ok && v == c.Version {
			lexFresh = true
		}
		vecFresh := m.vector.Fresh(c.ID, c.Version)
		if lexFresh && (vecFresh || m.embedder == nil) {
			report.Skipped++
			continue
		}

		if !lexFresh {
			title, err := m.documentTitle(ctx, titles, c.DocumentID)
			if err != nil {
				return report, err
			}
			if err := m.lexical.Put(ctx, c, title); err != nil {
				return report, fmt.Errorf("lexical index %s: %w", c.ID, err)
			}
		}
		if !vecFresh {
			m.vector.Invalidate(c.ID, c.Version)
			if m.embedder != nil {
				pending = append(pending, c)
			}
		}
		report.Indexed++
	}

	if len(pending) > 0 {
		r, err := m.embed(ctx, pending)
		report.Add(r)
		if err != nil {
			return report, err
		}
	}

	logger.Debug("index maintainer: indexed=%d skipped=%d vector_pending=%d",
		report.Indexed, report.Skipped, report.VectorPending)
	return report, nil
}

// documentTitle returns the title of a chunk's document, memoised in
// titles. A document deleted in the meantime has no title.
func (m *IndexMaintainer) documentTitle(ctx context.Context, titles map[string]string, documentID string) (string, error) {
	if title, ok := titles[documentID]; ok {
		return title, nil
	}
	doc, err := m.store.GetDocument(ctx, documentID)
	if errors.Is(err, domain.ErrNotFound) {
		titles[documentID] = ""
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get document %s: %w", documentID, err)
	}
	titles[documentID] = doc.Title
	return doc.Title, nil
}

// embed computes embeddings in batches with no locks held, then stores them.
func (m *IndexMaintainer) embed(ctx context.Context, chunks []domain.Chunk) (domain.IndexReport, error) {
	var report domain.IndexReport
	for start := 0; start < len(chunks); start += m.batchSize {
		batch := chunks[start:min(start+m.batchSize, len(chunks))]

		texts := make([]string, len(batch))
		for i := range batch {
			texts[i] = embeddingText(batch[i])
		}

		vectors, err := m.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			logger.Warn("embedding batch of %d failed: %v", len(batch), err)
			report.VectorPending += len(batch)
			continue
		}
		if len(vectors) != len(batch) {
			logger.Warn("embedding provider returned %d vectors for %d texts", len(vectors), len(batch))
			report.VectorPending += len(batch)
			continue
		}

		for i := range batch {
			err := m.vector.Put(ctx, batch[i].ID, batch[i].Version, vectors[i])
			if errors.Is(err, domain.ErrDimensionMismatch) {
				logger.Warn("vector for %s rejected: %v", batch[i].ID, err)
				report.VectorPending++
				continue
			}
			if err != nil {
				return report, fmt.Errorf("vector index %s: %w", batch[i].ID, err)
			}
		}
	}
	return report, nil
}

// ChunksDeleted removes chunks from both indexes before returning. Each
// index remembers the version a chunk was deleted at, so an upsert of an
// earlier version that arrives late cannot bring the chunk back.
func (m *IndexMaintainer) ChunksDeleted(ctx context.Context, chunks []domain.Chunk) (domain.IndexReport, error) {
	var report domain.IndexReport
	for i := range chunks {
		r, err := m.remove(ctx, chunks[i].ID, chunks[i].Version)
		report.Add(r)
		if err != nil {
			return report, err
		}
	}
	return report, nil
}

// remove drops one chunk from both indexes. A zero version records no
// deletion, so the chunk can be indexed again.
func (m *IndexMaintainer) remove(ctx context.Context, chunkID string, version int64) (domain.IndexReport, error) {
	if err := m.lexical.Remove(ctx, chunkID, version); err != nil {
		return domain.IndexReport{}, fmt.Errorf("lexical remove %s: %w", chunkID, err)
	}
	if err := m.vector.Remove(ctx, chunkID, version); err != nil {
		return domain.IndexReport{}, fmt.Errorf("vector remove %s: %w", chunkID, err)
	}
	return domain.IndexReport{Removed: 1}, nil
}

// Reindex drops a chunk's entries and rebuilds them from the store.
// A chunk that is no longer live is only removed.
func (m *IndexMaintainer) Reindex(ctx context.Context, chunkID string) (domain.IndexReport, error) {
	chunk, err := m.store.GetChunk(ctx, chunkID)
	if errors.Is(err, domain.ErrNotFound) {
		return m.remove(ctx, chunkID, 0)
	}
	if err != nil {
		return domain.IndexReport{}, fmt.Errorf("get chunk: %w", err)
	}

	report, err := m.remove(ctx, chunkID, 0)
	if err != nil {
		return report, err
	}
	r, err := m.ChunksUpserted(ctx, []domain.Chunk{*chunk})
	report.Add(r)
	return report, err
}

// RepairStale indexes every live chunk whose entries are missing or stale,
// and removes entries whose chunk is gone.
func (m *IndexMaintainer) RepairStale(ctx context.Context) (domain.IndexReport, error) {
	logger.Section("Index repair")

	live, err := m.store.ListLiveChunks(ctx)
	if err != nil {
		return domain.IndexReport{}, fmt.Errorf("list live chunks: %w", err)
	}

	liveIDs := make(map[string]struct{}, len(live))
	for i := range live {
		liveIDs[live[i].ID] = struct{}{}
	}

	orphans := make(map[string]struct{})
	for _, id := range m.lexical.IDs() {
		if _, ok := liveIDs[id]; !ok {
			orphans[id] = struct{}{}
		}
	}
	for _, id := range m.vector.IDs() {
		if _, ok := liveIDs[id]; !ok {
			orphans[id] = struct{}{}
		}
	}
	var report domain.IndexReport
	for id := range orphans {
		r, err := m.remove(ctx, id, 0)
		report.Add(r)
		if err != nil {
			return report, err
		}
	}
	r, err := m.ChunksUpserted(ctx, live)
	report.Add(r)
	if err != nil {
		return report, err
	}

	logger.Info("Index repair: indexed=%d skipped=%d removed=%d vector_pending=%d",
		report.Indexed, report.Skipped, report.Removed, report.VectorPending)
	return report, nil
}

// Rebuild discards every vector, switches the vector index to the
// configured provider and re-embeds the corpus.
func (m *IndexMaintainer) Rebuild(ctx context.Context) (domain.IndexReport, error) {
	dims := 0
	if m.embedder != nil {
		dims = m.embedder.Dimensions()
	}
	logger.Info("Rebuilding vector index for provider %q (%d dimensions)", m.providerID, dims)
	if err := m.vector.Reset(ctx, m.providerID, dims); err != nil {
		return domain.IndexReport{}, fmt.Errorf("reset vector index: %w", err)
	}
	return m.RepairStale(ctx)
}

// Reconcile brings the indexes in line with the store at startup. A vector
// index built by a different provider is rebuilt; otherwise only stale
// entries are repaired.
func (m *IndexMaintainer) Reconcile(ctx context.Context) (domain.IndexReport, error) {
	if m.embedder != nil && m.vector.ProviderID() != m.providerID {
		logger.Info("Embedding provider changed from %q to %q", m.vector.ProviderID(), m.providerID)
		return m.Rebuild(ctx)
	}
	return m.RepairStale(ctx)
}

// Stats reports index sizes.
func (m *IndexMaintainer) Stats() driving.IndexStats {
	return driving.IndexStats{
		LexicalEntries: m.lexical.Len(),
		VectorEntries:  m.vector.Len(),
		ProviderID:     m.vector.ProviderID(),
	}
}

// embeddingText is the text embedded for a chunk: its heading path and body.
func embeddingText(c domain.Chunk) string {
	if c.IsRoot() {
		return c.Body
	}
	return strings.Join(c.HeadingPath, domain.TopicSeparator) + "\n\n" + c.Body
}
