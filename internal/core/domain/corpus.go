package domain

// ImportRequest carries one file to import.
type ImportRequest struct {
	// Filename selects the converter and names the document.
	Filename string

	// Content is the raw file bytes.
	Content []byte
}

// ImportResult reports the outcome of an import.
type ImportResult struct {
	// Document is the stored document.
	Document Document

	// Chunks is the number of chunks created.
	Chunks int

	// Unchanged is set when the file hash matched the stored document.
	Unchanged bool

	// Replaced is set when an earlier version of the file was replaced.
	Replaced bool

	// Index reports what the index maintainer did.
	Index IndexReport
}

// IndexReport summarises one index maintenance pass.
type IndexReport struct {
	// Indexed counts chunks written to the indexes.
	Indexed int

	// Skipped counts chunks that were already fresh.
	Skipped int

	// Removed counts entries dropped from the indexes.
	Removed int

	// VectorPending counts chunks left without a fresh embedding because the
	// provider failed or is not configured. They stay lexically searchable.
	VectorPending int
}

// Add accumulates another report into r.
func (r *IndexReport) Add(other IndexReport) {
	r.Indexed += other.Indexed
	r.Skipped += other.Skipped
	r.Removed += other.Removed
	r.VectorPending += other.VectorPending
}

// LexicalEntry is the persisted lexical index record for one chunk.
type LexicalEntry struct {
	ChunkID  string
	Version  int64
	TitleTF  map[string]int
	BodyTF   map[string]int
	TitleLen int
	BodyLen  int
}

// VectorEntry is the persisted vector index record for one chunk.
type VectorEntry struct {
	ChunkID   string
	Version   int64
	Embedding []float32
}
