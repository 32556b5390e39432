package postprocessors

import (
	"fmt"

	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-kb/internal/postprocessors/chunker"
	"github.com/custodia-labs/sercha-kb/internal/postprocessors/title"
)

// DefaultProcessors is the processor order used when none is configured.
var DefaultProcessors = []string{"chunker", "title"}

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("title", buildTitle)
}

// BuildPipeline builds a pipeline from processor names and per-processor config.
func BuildPipeline(r *Registry, names []string, configs map[string]map[string]any) (*Pipeline, error) {
	if len(names) == 0 {
		names = DefaultProcessors
	}
	p := NewPipeline()
	for _, name := range names {
		proc, err := r.Build(name, configs[name])
		if err != nil {
			return nil, fmt.Errorf("build pipeline: %w", err)
		}
		p.Add(proc)
	}
	return p, nil
}

// DefaultPipeline returns the built-in chunker + title pipeline.
func DefaultPipeline() *Pipeline {
	return NewPipeline(chunker.New(), title.New())
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - max_level (int): Deepest heading level that opens a chunk (default: 6)
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if cfg != nil {
		if level := getIntFromConfig(cfg, "max_level"); level > 0 {
			opts = append(opts, chunker.WithMaxLevel(level))
		}
	}

	return chunker.New(opts...), nil
}

// buildTitle creates a title processor from generic config.
// Supported config keys:
//   - placeholder (string): Title for empty headings (default: "untitled")
func buildTitle(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []title.Option

	if s, ok := cfg["placeholder"].(string); ok {
		opts = append(opts, title.WithPlaceholder(s))
	}

	return title.New(opts...), nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	val, ok := cfg[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
