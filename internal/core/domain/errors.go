package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrInvalidArgument indicates malformed caller input, such as an empty
	// query or an empty topic id list. Never retried.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound indicates a requested entity does not exist or was deleted.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrConflict indicates a chunk was modified since the caller read it.
	// The caller must re-read and retry; it is never retried silently.
	ErrConflict = errors.New("version conflict")

	// ErrProviderUnavailable indicates the embedding provider failed after retries.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")

	// ErrIndexInconsistent indicates an index returned an entry that no longer
	// matches the chunk store. The affected chunk is re-indexed.
	ErrIndexInconsistent = errors.New("index inconsistent")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Vector search is disabled and resolution runs lexical-only.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrUnsupportedType indicates no converter handles a file type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrDimensionMismatch indicates a vector does not match the index dimensions.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)
