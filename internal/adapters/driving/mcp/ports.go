package mcp

import (
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Resolution answers resolve-keywords.
	Resolution driving.ResolutionService

	// Retrieval answers get-docs and renders document resources.
	Retrieval driving.RetrievalService

	// Corpus lists documents for the kb://documents resource.
	// Optional; without it the list is empty.
	Corpus driving.CorpusService
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
