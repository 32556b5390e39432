package services

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-kb/internal/adapters/driven/index/lexical"
	"github.com/custodia-labs/sercha-kb/internal/adapters/driven/index/vector"
	"github.com/custodia-labs/sercha-kb/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-kb/internal/postprocessors"
)

// --- Mock implementations ---

// mockEmbeddingService implements driven.EmbeddingService. Each text maps
// to a vector counting a few keywords so similarity is predictable.
type mockEmbeddingService struct {
	mu         sync.Mutex
	embedErr   error
	batchCalls int
	texts      []string
}

var mockVocabulary = []string{"cache", "deploy", "backup", "vector"}

func (m *mockEmbeddingService) vectorFor(text string) []float32 {
	lower := strings.ToLower(text)
	v := make([]float32, len(mockVocabulary)+1)
	for i, w := range mockVocabulary {
		v[i] = float32(strings.Count(lower, w))
	}
	v[len(mockVocabulary)] = 0.01
	return v
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vectorFor(text), nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCalls++
	m.texts = append(m.texts, texts...)
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vectorFor(t)
	}
	return out, nil
}

func (m *mockEmbeddingService) Dimensions() int { return len(mockVocabulary) + 1 }
func (m *mockEmbeddingService) ModelName() string { return "mock-embed" }
func (m *mockEmbeddingService) Ping(_ context.Context) error { return nil }
func (m *mockEmbeddingService) Close() error { return nil }

func (m *mockEmbeddingService) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedErr = err
}

func (m *mockEmbeddingService) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batchCalls
}

// passthroughConverter accepts .md and .txt and returns the bytes as text.
type passthroughConverter struct{}

func (passthroughConverter) Name() string { return "passthrough" }
func (passthroughConverter) Extensions() []string { return []string{".md", ".txt"} }
func (passthroughConverter) Convert(_ context.Context, _ string, raw []byte) (string, error) {
	return string(raw), nil
}

type mockConverterRegistry struct{}

func (mockConverterRegistry) ForFile(filename string) (driven.Converter, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".txt":
		return passthroughConverter{}, nil
	default:
		return nil, domain.ErrUnsupportedType
	}
}

// failingReplaceStore is a chunk store whose ReplaceDocument always fails.
type failingReplaceStore struct {
	*memory.ChunkStore
	err error
}

func (s failingReplaceStore) ReplaceDocument(
	_ context.Context, _ string, _ domain.Document, _ []domain.ChunkDraft,
) ([]domain.Chunk, []domain.Chunk, error) {
	return nil, nil, s.err
}

// --- Test helpers ---

const testProviderID = "mock:mock-embed:5"

// testEnv wires the services over in-memory adapters.
type testEnv struct {
	store      *memory.ChunkStore
	indexStore *memory.IndexStore
	lexical    *lexical.Index
	vector     *vector.Index
	embedder   *mockEmbeddingService
	maintainer *IndexMaintainer
	corpus     *CorpusService
	resolver   *ResolutionService
	retriever  *RetrievalService
}

func newTestEnv(t *testing.T, withEmbedder bool) *testEnv {
	t.Helper()
	env := &testEnv{
		store:      memory.NewChunkStore(),
		indexStore: memory.NewIndexStore(),
	}
	env.lexical = lexical.New(env.indexStore, lexical.ParamsFromSettings(domain.LexicalSettings{}))
	env.vector = vector.New(env.indexStore)

	var embedder driven.EmbeddingService
	providerID := ""
	if withEmbedder {
		env.embedder = &mockEmbeddingService{}
		embedder = env.embedder
		providerID = testProviderID
		require.NoError(t, env.vector.Reset(context.Background(), providerID, env.embedder.Dimensions()))
	}

	env.maintainer = NewIndexMaintainer(env.store, env.lexical, env.vector, embedder, providerID, 2)
	env.corpus = NewCorpusService(env.store, mockConverterRegistry{}, postprocessors.DefaultPipeline(), env.maintainer)
	env.resolver = NewResolutionService(env.store, env.lexical, env.vector, embedder, domain.DefaultAppSettings().Search)
	env.resolver.SetReindexer(env.maintainer)
	env.retriever = NewRetrievalService(env.store)
	return env
}

func (e *testEnv) importDoc(t *testing.T, filename, content string) *domain.ImportResult {
	t.Helper()
	res, err := e.corpus.Import(context.Background(), domain.ImportRequest{Filename: filename, Content: []byte(content)})
	require.NoError(t, err)
	return res
}

func (e *testEnv) chunkByTitle(t *testing.T, documentID, title string) domain.Chunk {
	t.Helper()
	chunks, err := e.store.ListChunks(context.Background(), documentID)
	require.NoError(t, err)
	for _, c := range chunks {
		if c.Title == title {
			return c
		}
	}
	t.Fatalf("no chunk titled %q", title)
	return domain.Chunk{}
}

const opsGuide = `Operations notes for the team.

# Caching
Use a write-through cache for sessions.

## Eviction
LRU eviction keeps the cache bounded.

# Deployment
Blue green deploy with automatic rollback.

## Backups
Nightly backup snapshots are kept for thirty days.
`
