// Package domain defines the core business entities for the knowledge base.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An imported file and the owner of its chunks
//   - Chunk: A heading-scoped unit of text, the unit of indexing and retrieval
//   - ChunkDraft: Chunker output before it is persisted
//   - TopicCandidate: A ranked topic returned by keyword resolution
//   - DocResult: The reconstructed content returned for a topic id
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
