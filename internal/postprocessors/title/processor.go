// Package title provides a processor that normalises heading titles.
package title

import (
	"context"
	"strings"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// DefaultPlaceholder replaces empty heading titles.
const DefaultPlaceholder = "untitled"

// Processor collapses whitespace runs in heading titles and names empty
// headings, keeping every draft's heading path in step with its ancestors.
type Processor struct {
	placeholder string
}

// Option configures the title processor.
type Option func(*Processor)

// WithPlaceholder sets the title used for empty headings.
func WithPlaceholder(s string) Option {
	return func(p *Processor) {
		if s = strings.TrimSpace(s); s != "" {
			p.placeholder = s
		}
	}
}

// New creates a new title processor.
func New(opts ...Option) *Processor {
	p := &Processor{placeholder: DefaultPlaceholder}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "title"
}

// Process rewrites titles and heading paths in place.
func (p *Processor) Process(_ context.Context, _ string, drafts []domain.ChunkDraft) ([]domain.ChunkDraft, error) {
	for i := range drafts {
		d := &drafts[i]
		if d.Level() == 0 {
			continue
		}
		path := make([]string, len(d.HeadingPath))
		for j, seg := range d.HeadingPath {
			path[j] = p.clean(seg)
		}
		d.HeadingPath = path
		d.Title = path[len(path)-1]
	}
	return drafts, nil
}

func (p *Processor) clean(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return p.placeholder
	}
	return s
}
