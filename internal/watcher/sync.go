package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-kb/internal/logger"
)

// DefaultSettle is how long a path must stay quiet before its change is applied.
const DefaultSettle = 250 * time.Millisecond

// Actions reported in an Outcome.
const (
	ActionImported  = "imported"
	ActionReplaced  = "replaced"
	ActionUnchanged = "unchanged"
	ActionDeleted   = "deleted"
	ActionSkipped   = "skipped"
	ActionFailed    = "failed"
)

// Outcome reports what applying one change did.
type Outcome struct {
	Path   string
	Action string
	Chunks int
	Err    error
}

// Syncer applies file changes to a corpus.
type Syncer struct {
	corpus driving.CorpusService
	settle time.Duration
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithSettle sets the quiet period used to coalesce bursts of events.
func WithSettle(d time.Duration) Option {
	return func(s *Syncer) {
		if d > 0 {
			s.settle = d
		}
	}
}

// NewSyncer creates a syncer for corpus.
func NewSyncer(corpus driving.CorpusService, opts ...Option) *Syncer {
	s := &Syncer{corpus: corpus, settle: DefaultSettle}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply applies one change. Documents are keyed by file name, so files are
// imported under their base name. Files no converter accepts are skipped.
func (s *Syncer) Apply(ctx context.Context, c Change) (Outcome, error) {
	name := filepath.Base(c.Path)
	out := Outcome{Path: c.Path}

	if c.Type == ChangeDeleted {
		doc, err := s.findDocument(ctx, name)
		if err != nil {
			return out, err
		}
		if doc == nil {
			out.Action = ActionSkipped
			return out, nil
		}
		if _, err := s.corpus.DeleteDocument(ctx, doc.ID); err != nil {
			return out, fmt.Errorf("delete %s: %w", name, err)
		}
		out.Action = ActionDeleted
		return out, nil
	}

	res, err := s.corpus.Import(ctx, domain.ImportRequest{Filename: name, Content: c.Content})
	if errors.Is(err, domain.ErrUnsupportedType) {
		logger.Debug("watcher: skipping %s: %v", c.Path, err)
		out.Action = ActionSkipped
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("import %s: %w", name, err)
	}

	out.Chunks = res.Chunks
	switch {
	case res.Unchanged:
		out.Action = ActionUnchanged
	case res.Replaced:
		out.Action = ActionReplaced
	default:
		out.Action = ActionImported
	}
	return out, nil
}

// SyncAll applies the changes from a scan in order. When two files share a
// base name only the first is imported. Per-file failures are reported and do
// not stop the sync.
func (s *Syncer) SyncAll(ctx context.Context, changes []Change, report func(Outcome)) error {
	seen := make(map[string]string, len(changes))
	for _, c := range changes {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := filepath.Base(c.Path)
		if first, dup := seen[name]; dup {
			logger.Warn("watcher: %s has the same name as %s, skipping", c.Path, first)
			report(Outcome{Path: c.Path, Action: ActionSkipped})
			continue
		}
		seen[name] = c.Path
		s.applyAndReport(ctx, c, report)
	}
	return nil
}

// Run applies changes from ch until it closes or ctx is cancelled. Changes
// to the same path are coalesced until the path has been quiet for the
// settle period, so an editor's burst of writes imports once.
func (s *Syncer) Run(ctx context.Context, ch <-chan Change, report func(Outcome)) error {
	pending := make(map[string]Change)
	var order []string

	timer := time.NewTimer(s.settle)
	timer.Stop()
	defer timer.Stop()

	flush := func() {
		for _, path := range order {
			s.applyAndReport(ctx, pending[path], report)
		}
		pending = make(map[string]Change)
		order = order[:0]
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case c, ok := <-ch:
			if !ok {
				flush()
				return nil
			}
			if _, queued := pending[c.Path]; !queued {
				order = append(order, c.Path)
			}
			pending[c.Path] = c
			timer.Reset(s.settle)
		case <-timer.C:
			flush()
		}
	}
}

func (s *Syncer) applyAndReport(ctx context.Context, c Change, report func(Outcome)) {
	out, err := s.Apply(ctx, c)
	if err != nil {
		logger.Error("watcher: %v", err)
		out.Action = ActionFailed
		out.Err = err
	}
	report(out)
}

func (s *Syncer) findDocument(ctx context.Context, filename string) (*domain.Document, error) {
	docs, err := s.corpus.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	for i := range docs {
		if docs[i].Filename == filename {
			return &docs[i], nil
		}
	}
	return nil, nil
}
