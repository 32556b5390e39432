// Package tui provides an interactive terminal browser for the knowledge base.
// It implements a driving adapter over the same ports as the CLI and MCP server.
package tui

import (
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the TUI.
type Ports struct {
	// Resolution ranks topics for a query.
	Resolution driving.ResolutionService

	// Retrieval returns topic content and whole documents.
	Retrieval driving.RetrievalService

	// Corpus lists and deletes documents. Optional; the documents view is
	// disabled without it.
	Corpus driving.CorpusService
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(
	resolution driving.ResolutionService,
	retrieval driving.RetrievalService,
	corpus driving.CorpusService,
) *Ports {
	return &Ports{
		Resolution: resolution,
		Retrieval:  retrieval,
		Corpus:     corpus,
	}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Resolution == nil {
		return ErrMissingResolutionService
	}
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	return nil
}
