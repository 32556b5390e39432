// Package app wires the driven adapters and core services into a running
// knowledge base. It is the composition root shared by every command.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-kb/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-kb/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-kb/internal/adapters/driven/index/lexical"
	"github.com/custodia-labs/sercha-kb/internal/adapters/driven/index/vector"
	"github.com/custodia-labs/sercha-kb/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-kb/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-kb/internal/converters"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-kb/internal/core/services"
	"github.com/custodia-labs/sercha-kb/internal/logger"
	"github.com/custodia-labs/sercha-kb/internal/postprocessors"
)

// Options controls how the knowledge base is opened.
type Options struct {
	// DataDir holds metadata.db, config.toml and an optional .env.
	// Empty means ~/.sercha-kb.
	DataDir string

	// Ephemeral keeps everything in memory; nothing is read from or written
	// to the data directory.
	Ephemeral bool
}

// App holds the wired services.
type App struct {
	Corpus     *services.CorpusService
	Resolution *services.ResolutionService
	Retrieval  *services.RetrievalService
	Index      *services.IndexMaintainer
	Settings   *services.SettingsService

	// DataDir is the resolved data directory, empty when ephemeral.
	DataDir string

	// Embedder is nil when vector search is unavailable.
	Embedder driven.EmbeddingService

	closers []func() error
}

// storage groups the persistence ports chosen by Options.
type storage struct {
	config driven.ConfigStore
	chunks driven.ChunkStore
	index  driven.IndexStore
}

// New opens the knowledge base, loads the indexes and reconciles them with
// the chunk store. An unreachable embedding provider is not fatal: the app
// then runs lexical-only.
func New(ctx context.Context, opts Options) (*App, error) {
	a := &App{}

	st, err := a.openStorage(opts)
	if err != nil {
		a.Close() //nolint:errcheck
		return nil, err
	}

	a.Settings = services.NewSettingsService(st.config, ai.EmbeddingValidator(ai.ValidateEmbeddingConfig))
	settings, err := a.Settings.Get()
	if err != nil {
		a.Close() //nolint:errcheck
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	lex := lexical.New(st.index, lexical.ParamsFromSettings(settings.Lexical))
	vec := vector.New(st.index)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return lex.Load(gctx) })
	g.Go(func() error { return vec.Load(gctx) })
	if err := g.Wait(); err != nil {
		a.Close() //nolint:errcheck
		return nil, err
	}

	providerID := ""
	a.Embedder, err = ai.CreateAndValidateEmbeddingService(ctx, &settings.Embedding)
	switch {
	case err != nil:
		logger.Warn("%v; running lexical-only", err)
	case a.Embedder == nil:
		logger.Debug("No embedding provider configured; running lexical-only")
	default:
		providerID = settings.Embedding.ProviderID()
		a.closers = append(a.closers, a.Embedder.Close)
	}

	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)
	pipeline, err := postprocessors.BuildPipeline(registry, nil, a.Settings.ProcessorConfigs())
	if err != nil {
		a.Close() //nolint:errcheck
		return nil, err
	}

	a.Index = services.NewIndexMaintainer(st.chunks, lex, vec, a.Embedder, providerID, settings.Embedding.BatchSize)
	a.Corpus = services.NewCorpusService(st.chunks, converters.NewDefaultRegistry(), pipeline, a.Index)
	a.Resolution = services.NewResolutionService(st.chunks, lex, vec, a.Embedder, settings.Search)
	a.Resolution.SetReindexer(a.Index)
	a.Retrieval = services.NewRetrievalService(st.chunks)

	report, err := a.Index.Reconcile(ctx)
	if err != nil {
		a.Close() //nolint:errcheck
		return nil, fmt.Errorf("reconciling indexes: %w", err)
	}
	if report.Indexed > 0 || report.Removed > 0 {
		logger.Info("Reconciled indexes: %d indexed, %d removed", report.Indexed, report.Removed)
	}
	if report.VectorPending > 0 {
		logger.Warn("%d chunks are waiting for embeddings", report.VectorPending)
	}

	return a, nil
}

func (a *App) openStorage(opts Options) (storage, error) {
	if opts.Ephemeral {
		logger.Debug("Using in-memory storage")
		return storage{
			config: memory.NewConfigStore(),
			chunks: memory.NewChunkStore(),
			index:  memory.NewIndexStore(),
		}, nil
	}

	dataDir, err := ResolveDataDir(opts.DataDir)
	if err != nil {
		return storage{}, err
	}
	a.DataDir = dataDir

	dirs := []string{dataDir}
	if wd, err := os.Getwd(); err == nil && wd != dataDir {
		dirs = append(dirs, wd)
	}
	loaded, err := file.LoadDotEnv(dirs...)
	if err != nil {
		return storage{}, err
	}
	for _, path := range loaded {
		logger.Debug("Loaded environment from %s", path)
	}

	cfg, err := file.NewConfigStore(dataDir)
	if err != nil {
		return storage{}, fmt.Errorf("opening config: %w", err)
	}
	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return storage{}, fmt.Errorf("opening store: %w", err)
	}
	a.closers = append(a.closers, store.Close)
	logger.Debug("Using data directory %s", dataDir)

	return storage{
		config: cfg,
		chunks: store.ChunkStore(),
		index:  store.IndexStore(),
	}, nil
}

// Close releases the store and the embedding provider.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// ResolveDataDir returns dir, or ~/.sercha-kb when dir is empty.
func ResolveDataDir(dir string) (string, error) {
	if dir != "" {
		return filepath.Abs(dir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, file.DefaultDirName), nil
}
