package converters

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-kb/internal/converters/html"
	"github.com/custodia-labs/sercha-kb/internal/converters/markdown"
	"github.com/custodia-labs/sercha-kb/internal/converters/plaintext"
	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ConverterRegistry = (*Registry)(nil)

// Registry maps file extensions to converters.
type Registry struct {
	mu    sync.RWMutex
	byExt map[string]driven.Converter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byExt: make(map[string]driven.Converter)}
}

// NewDefaultRegistry creates a registry with the built-in converters.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(markdown.New())
	r.Register(plaintext.New())
	r.Register(html.New())
	return r
}

// Register adds a converter for each of its extensions, replacing any
// converter already registered for them.
func (r *Registry) Register(c driven.Converter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range c.Extensions() {
		r.byExt[strings.ToLower(ext)] = c
	}
}

// ForFile returns the converter for the file's extension.
func (r *Registry) ForFile(filename string) (driven.Converter, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	r.mu.RLock()
	c, ok := r.byExt[ext]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)",
			domain.ErrUnsupportedType, filename, strings.Join(r.Extensions(), ", "))
	}
	return c, nil
}

// Extensions returns the registered extensions, sorted.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
