package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/postprocessors"
)

// lexicalIDs returns the chunk ids the lexical index ranks for query.
func lexicalIDs(t *testing.T, env *testEnv, query string) []string {
	t.Helper()
	hits, err := env.lexical.Search(context.Background(), query, 10)
	require.NoError(t, err)
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ChunkID
	}
	return ids
}

func TestCorpusService_Import(t *testing.T) {
	env := newTestEnv(t, true)

	res := env.importDoc(t, "notes/ops-guide.md", opsGuide)

	assert.Equal(t, "ops-guide.md", res.Document.Filename)
	assert.Equal(t, "ops-guide", res.Document.Title)
	assert.NotEmpty(t, res.Document.SourceHash)
	assert.Equal(t, 5, res.Chunks)
	assert.False(t, res.Unchanged)
	assert.Equal(t, domain.IndexReport{Indexed: 5}, res.Index)

	assert.Equal(t, 5, env.lexical.Len())
	assert.Equal(t, 5, env.vector.Len())
	assert.Equal(t, 3, env.embedder.calls(), "five chunks in batches of two")
}

func TestCorpusService_Import_UnchangedIsNoop(t *testing.T) {
	env := newTestEnv(t, true)
	first := env.importDoc(t, "ops-guide.md", opsGuide)
	calls := env.embedder.calls()

	again := env.importDoc(t, "ops-guide.md", opsGuide)

	assert.True(t, again.Unchanged)
	assert.Equal(t, first.Document.ID, again.Document.ID)
	assert.Equal(t, 5, again.Chunks)
	assert.Equal(t, calls, env.embedder.calls())
}

func TestCorpusService_Import_ChangedReplaces(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, true)
	first := env.importDoc(t, "ops-guide.md", opsGuide)

	second := env.importDoc(t, "ops-guide.md", "# Caching\nRedis cluster only.\n")

	assert.True(t, second.Replaced)
	assert.NotEqual(t, first.Document.ID, second.Document.ID)
	assert.Equal(t, 5, second.Index.Removed)
	assert.Equal(t, 1, second.Chunks)

	_, err := env.store.GetDocument(ctx, first.Document.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, lexicalIDs(t, env, "snapshots"))
	assert.Len(t, lexicalIDs(t, env, "redis"), 1)
	assert.Equal(t, 1, env.lexical.Len())
}

func TestCorpusService_Import_FailedReplaceKeepsOldDocument(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, false)
	first := env.importDoc(t, "ops-guide.md", opsGuide)

	corpus := NewCorpusService(failingReplaceStore{ChunkStore: env.store, err: assert.AnError},
		mockConverterRegistry{}, postprocessors.DefaultPipeline(), env.maintainer)
	_, err := corpus.Import(ctx, domain.ImportRequest{
		Filename: "ops-guide.md",
		Content:  []byte("# Caching\nRedis cluster only.\n"),
	})
	assert.ErrorIs(t, err, assert.AnError)

	doc, err := env.store.GetDocumentByFilename(ctx, "ops-guide.md")
	require.NoError(t, err)
	assert.Equal(t, first.Document.ID, doc.ID)
	chunks, err := env.store.ListChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, chunks, 5)
	assert.Len(t, lexicalIDs(t, env, "snapshots"), 1)
	assert.Empty(t, lexicalIDs(t, env, "redis"))
}

func TestCorpusService_Import_Rejects(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	_, err := env.corpus.Import(ctx, domain.ImportRequest{Filename: "slides.pptx", Content: []byte("x")})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)

	_, err = env.corpus.Import(ctx, domain.ImportRequest{Filename: " ", Content: []byte("x")})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestCorpusService_Import_TitleCollision(t *testing.T) {
	env := newTestEnv(t, false)
	env.importDoc(t, "guide.md", "# A\nalpha\n")

	_, err := env.corpus.Import(context.Background(), domain.ImportRequest{Filename: "guide.txt", Content: []byte("beta")})

	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestCorpusService_UpdateChunk(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, true)
	res := env.importDoc(t, "ops-guide.md", opsGuide)
	eviction := env.chunkByTitle(t, res.Document.ID, "Eviction")

	updated, err := env.corpus.UpdateChunk(ctx, eviction.ID, eviction.Version, "ARC replacement policy.\n")
	require.NoError(t, err)
	assert.Greater(t, updated.Version, eviction.Version)

	got, err := env.corpus.GetChunk(ctx, eviction.ID)
	require.NoError(t, err)
	assert.Equal(t, "ARC replacement policy.\n", got.Body)
	assert.Equal(t, updated.Version, got.Version)

	assert.Equal(t, []string{eviction.ID}, lexicalIDs(t, env, "replacement policy"))
	assert.NotContains(t, lexicalIDs(t, env, "LRU"), eviction.ID)
	assert.True(t, env.vector.Fresh(eviction.ID, updated.Version))
}

func TestCorpusService_UpdateChunk_Conflict(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, false)
	res := env.importDoc(t, "ops-guide.md", opsGuide)
	c := env.chunkByTitle(t, res.Document.ID, "Caching")

	_, err := env.corpus.UpdateChunk(ctx, c.ID, c.Version, "first edit\n")
	require.NoError(t, err)

	_, err = env.corpus.UpdateChunk(ctx, c.ID, c.Version, "second edit from stale copy\n")
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestCorpusService_UpdateChunk_RejectsHeadingInBody(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, false)
	res := env.importDoc(t, "ops-guide.md", opsGuide)
	c := env.chunkByTitle(t, res.Document.ID, "Caching")

	_, err := env.corpus.UpdateChunk(ctx, c.ID, 0, "text\n## Sneaky\nmore\n")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = env.corpus.UpdateChunk(ctx, c.ID, 0, "```\n# not a heading\n```\n")
	assert.NoError(t, err, "fenced code may contain #")
}

func TestCorpusService_DeleteChunk_RemovedFromResolution(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, true)
	res := env.importDoc(t, "ops-guide.md", opsGuide)
	backups := env.chunkByTitle(t, res.Document.ID, "Backups")
	require.Contains(t, lexicalIDs(t, env, "snapshots"), backups.ID)

	require.NoError(t, env.corpus.DeleteChunk(ctx, backups.ID))

	assert.NotContains(t, lexicalIDs(t, env, "snapshots"), backups.ID)
	_, ok := env.lexical.Version(backups.ID)
	assert.False(t, ok)
	assert.Equal(t, 4, env.vector.Len())

	err := env.corpus.DeleteChunk(ctx, backups.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCorpusService_DeleteDocument(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, true)
	res := env.importDoc(t, "ops-guide.md", opsGuide)

	report, err := env.corpus.DeleteDocument(ctx, res.Document.ID)
	require.NoError(t, err)

	assert.Equal(t, 5, report.Removed)
	assert.Zero(t, env.lexical.Len())
	assert.Zero(t, env.vector.Len())
	docs, err := env.corpus.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)

	n, err := env.corpus.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestCorpusService_AddChunks(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, false)
	res := env.importDoc(t, "ops-guide.md", opsGuide)

	added, err := env.corpus.AddChunks(ctx, res.Document.ID, []domain.ChunkDraft{
		{HeadingPath: []string{"Deployment", "Canary"}, Body: "Shift five percent of traffic first.\n"},
	})
	require.NoError(t, err)
	require.Len(t, added, 1)

	c := added[0]
	assert.Equal(t, "Canary", c.Title)
	assert.Equal(t, 2, c.MarkerLevel)
	assert.Equal(t, 5, c.Ordinal)
	assert.Equal(t, []string{c.ID}, lexicalIDs(t, env, "traffic"))

	chunks, err := env.corpus.ListChunks(ctx, res.Document.ID)
	require.NoError(t, err)
	assert.Len(t, chunks, 6)
}

func TestCorpusService_AddChunks_Validation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, false)
	res := env.importDoc(t, "ops-guide.md", opsGuide)

	tests := []struct {
		name  string
		draft domain.ChunkDraft
	}{
		{"title without path", domain.ChunkDraft{Title: "Orphan", MarkerLevel: 2}},
		{"blank heading", domain.ChunkDraft{HeadingPath: []string{" "}}},
		{"bad level", domain.ChunkDraft{HeadingPath: []string{"A"}, MarkerLevel: 7}},
		{"heading in body", domain.ChunkDraft{HeadingPath: []string{"A"}, Body: "# B\n"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.corpus.AddChunks(ctx, res.Document.ID, []domain.ChunkDraft{tt.draft})
			assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		})
	}

	_, err := env.corpus.AddChunks(ctx, res.Document.ID, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = env.corpus.AddChunks(ctx, "missing", []domain.ChunkDraft{{HeadingPath: []string{"A"}}})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCorpusService_EmbeddingFailureLeavesChunkLexical(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, true)
	env.embedder.setErr(assert.AnError)

	res := env.importDoc(t, "ops-guide.md", opsGuide)

	assert.Equal(t, 5, res.Index.Indexed)
	assert.Equal(t, 5, res.Index.VectorPending)
	assert.Zero(t, env.vector.Len())
	assert.Equal(t, 5, env.lexical.Len())

	env.embedder.setErr(nil)
	report, err := env.maintainer.RepairStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Indexed)
	assert.Zero(t, report.VectorPending)
	assert.Equal(t, 5, env.vector.Len())
}
