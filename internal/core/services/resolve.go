package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-kb/internal/logger"
)

// Ensure ResolutionService implements the interface.
var _ driving.ResolutionService = (*ResolutionService)(nil)

// minCandidateDepth is the least number of hits requested from each index.
const minCandidateDepth = 20

// Reindexer forces a single chunk back into a consistent index state.
type Reindexer interface {
	Reindex(ctx context.Context, chunkID string) (domain.IndexReport, error)
}

// ResolutionService answers resolve-keywords: it fuses lexical and vector
// rankings into topic candidates.
type ResolutionService struct {
	store    driven.ChunkStore
	lexical  driven.LexicalIndex
	vector   driven.VectorIndex
	embedder driven.EmbeddingService
	settings domain.SearchSettings

	reindexer Reindexer
}

// NewResolutionService creates a resolution service.
// The embedder is optional; without it every result is lexical-only and
// marked degraded.
func NewResolutionService(
	store driven.ChunkStore,
	lexical driven.LexicalIndex,
	vector driven.VectorIndex,
	embedder driven.EmbeddingService,
	settings domain.SearchSettings,
) *ResolutionService {
	return &ResolutionService{
		store:    store,
		lexical:  lexical,
		vector:   vector,
		embedder: embedder,
		settings: settings,
	}
}

// SetReindexer sets the component used to repair chunks found inconsistent
// during hydration.
func (s *ResolutionService) SetReindexer(r Reindexer) {
	s.reindexer = r
}

// hitVersions records the chunk version each index ranked.
type hitVersions struct {
	lexical map[string]int64
	vector  map[string]int64
}

// Resolve returns ranked topic candidates for a query.
func (s *ResolutionService) Resolve(ctx context.Context, req domain.ResolveRequest) (*domain.ResolveResult, error) {
	logger.Section("Resolve")

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: query must not be empty", domain.ErrInvalidArgument)
	}
	limit, err := s.effectiveLimit(req.Limit)
	if err != nil {
		return nil, err
	}
	depth := s.candidateDepth(limit)
	logger.Debug("Query: %q, limit=%d, depth=%d", query, limit, depth)

	var (
		lexHits   []driven.SearchHit
		vecHits   []driven.VectorHit
		degradeBy string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := s.lexical.Search(gctx, query, depth)
		if err != nil {
			return fmt.Errorf("lexical search: %w", err)
		}
		lexHits = hits
		return nil
	})
	g.Go(func() error {
		hits, reason := s.vectorSearch(gctx, query, depth)
		vecHits, degradeBy = hits, reason
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logger.Debug("Lexical hits: %d, vector hits: %d", len(lexHits), len(vecHits))

	versions := hitVersions{
		lexical: make(map[string]int64, len(lexHits)),
		vector:  make(map[string]int64, len(vecHits)),
	}
	lexIDs := make([]string, len(lexHits))
	for i, h := range lexHits {
		lexIDs[i] = h.ChunkID
		versions.lexical[h.ChunkID] = h.Version
	}
	vecIDs := make([]string, len(vecHits))
	for i, h := range vecHits {
		vecIDs[i] = h.ChunkID
		versions.vector[h.ChunkID] = h.Version
	}

	fused := Fuse(lexIDs, vecIDs, s.settings.RRFK)

	topics, err := s.hydrate(ctx, fused, versions, req.Filenames, limit)
	if err != nil {
		return nil, err
	}

	result := &domain.ResolveResult{
		Topics:         topics,
		Degraded:       degradeBy != "",
		DegradedReason: degradeBy,
	}
	if result.Degraded {
		logger.Warn("Resolution degraded to lexical-only: %s", degradeBy)
	}
	logger.Info("Resolved %d topics", len(topics))
	return result, nil
}

// vectorSearch embeds the query and searches the vector index. Any failure
// is reported as a degradation reason instead of an error.
func (s *ResolutionService) vectorSearch(ctx context.Context, query string, depth int) ([]driven.VectorHit, string) {
	if s.embedder == nil || s.vector == nil {
		return nil, "embedding provider not configured"
	}
	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Sprintf("query embedding failed: %v", err)
	}
	hits, err := s.vector.Search(ctx, embedding, depth)
	if err != nil {
		return nil, fmt.Sprintf("vector search failed: %v", err)
	}
	return hits, ""
}

// hydrate validates fused hits against the store, applies the filename
// filter and collapses duplicate topic paths until limit topics are found.
func (s *ResolutionService) hydrate(
	ctx context.Context,
	fused []FusedHit,
	versions hitVersions,
	filenames []string,
	limit int,
) ([]domain.TopicCandidate, error) {
	docs := make(map[string]*domain.Document)
	seen := make(map[string]struct{})
	topics := make([]domain.TopicCandidate, 0, limit)
	var inconsistent []string

	for _, hit := range fused {
		if len(topics) == limit {
			break
		}

		chunk, err := s.store.GetChunk(ctx, hit.ChunkID)
		if errors.Is(err, domain.ErrNotFound) {
			inconsistent = append(inconsistent, hit.ChunkID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get chunk %s: %w", hit.ChunkID, err)
		}
		if v, ok := versions.lexical[hit.ChunkID]; ok && v != chunk.Version {
			inconsistent = append(inconsistent, hit.ChunkID)
			continue
		}
		if v, ok := versions.vector[hit.ChunkID]; ok && v != chunk.Version {
			inconsistent = append(inconsistent, hit.ChunkID)
			continue
		}

		doc, ok := docs[chunk.DocumentID]
		if !ok {
			doc, err = s.store.GetDocument(ctx, chunk.DocumentID)
			if errors.Is(err, domain.ErrNotFound) {
				inconsistent = append(inconsistent, hit.ChunkID)
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("get document %s: %w", chunk.DocumentID, err)
			}
			docs[chunk.DocumentID] = doc
		}

		if !matchesFilename(doc.Filename, filenames) {
			continue
		}

		path := chunk.TopicPath(doc.Title)
		key := domain.FormatTopicPath(path)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		title := chunk.Title
		if chunk.IsRoot() {
			title = doc.Title
		}
		topics = append(topics, domain.TopicCandidate{
			TopicID:     chunk.ID,
			DocumentID:  doc.ID,
			Filename:    doc.Filename,
			HeadingPath: path,
			Title:       title,
			FusedRank:   len(topics) + 1,
			Score:       hit.Score,
			LexicalRank: hit.LexicalRank,
			VectorRank:  hit.VectorRank,
		})
	}

	if len(inconsistent) > 0 {
		s.repair(ctx, inconsistent)
		return nil, fmt.Errorf("%w: %d stale index entries (%s), re-indexed",
			domain.ErrIndexInconsistent, len(inconsistent), strings.Join(inconsistent, ", "))
	}
	return topics, nil
}

func (s *ResolutionService) repair(ctx context.Context, chunkIDs []string) {
	if s.reindexer == nil {
		logger.Warn("Index inconsistency detected but no reindexer is set")
		return
	}
	for _, id := range chunkIDs {
		if _, err := s.reindexer.Reindex(ctx, id); err != nil {
			logger.Error("re-index of %s failed: %v", id, err)
		}
	}
}

func (s *ResolutionService) effectiveLimit(requested int) (int, error) {
	switch {
	case requested < 0:
		return 0, fmt.Errorf("%w: limit must not be negative", domain.ErrInvalidArgument)
	case requested == 0:
		if s.settings.DefaultLimit > 0 {
			return min(s.settings.DefaultLimit, domain.MaxResolveLimit), nil
		}
		return domain.DefaultResolveLimit, nil
	case requested > domain.MaxResolveLimit:
		return domain.MaxResolveLimit, nil
	default:
		return requested, nil
	}
}

func (s *ResolutionService) candidateDepth(limit int) int {
	mult := s.settings.CandidateMultiplier
	if mult <= 0 {
		mult = domain.DefaultAppSettings().Search.CandidateMultiplier
	}
	return max(mult*limit, minCandidateDepth)
}

// matchesFilename reports whether filename contains any of the filters,
// ignoring case. An empty filter list matches everything.
func matchesFilename(filename string, filters []string) bool {
	if len(filters) == 0 {
		return true
	}
	lower := strings.ToLower(filename)
	for _, f := range filters {
		f = strings.TrimSpace(f)
		if f != "" && strings.Contains(lower, strings.ToLower(f)) {
			return true
		}
	}
	return false
}
