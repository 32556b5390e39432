// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - ChunkStore: Documents and chunks, the single source of truth
//   - IndexStore: Persistence for lexical and vector index entries
//   - LexicalIndex: BM25F keyword search. Always required.
//   - Converter / ConverterRegistry: File bytes to structured text
//   - PostProcessorPipeline: Structured text to chunk drafts
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Generates vector embeddings. Without it, resolution runs lexical-only.
//   - VectorIndex: Semantic similarity search. Only queried when EmbeddingService is configured.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or postprocessor package
package driven
