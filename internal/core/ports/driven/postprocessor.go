package driven

import (
	"context"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// PostProcessor turns structured text into chunk drafts.
// PostProcessors are chained in a pipeline: the first one creates drafts
// (receives nil), later ones transform them.
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process receives the document text and the drafts produced so far.
	Process(ctx context.Context, text string, drafts []domain.ChunkDraft) ([]domain.ChunkDraft, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the text through all processors in order.
	Process(ctx context.Context, text string) ([]domain.ChunkDraft, error)
}
