package domain

import (
	"strings"
	"time"
)

// Document represents an imported file.
// It owns an ordered sequence of chunks and is destroyed only by explicit
// deletion, which cascades to its chunks.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Filename is the original file name. Unique among live documents.
	Filename string

	// Title is the filename stem. It is the first segment of every topic path
	// in the document, so it is unique among live documents.
	Title string

	// SourceHash is the hex sha256 of the raw imported bytes.
	SourceHash string

	// ImportedAt is when the document was first imported.
	ImportedAt time.Time

	// UpdatedAt is when the document or any of its chunks last changed.
	UpdatedAt time.Time

	// Deleted marks a soft-deleted document.
	Deleted bool
}

// Chunk represents a heading-scoped unit of text.
// It is the unit of indexing and retrieval.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// HeadingPath lists heading titles from the document root down to this
	// chunk. The document title is not included. Empty for the root chunk.
	HeadingPath []string

	// Title is the leaf heading text. Empty for the root chunk.
	Title string

	// MarkerLevel is the heading marker level (1-6) that opened the chunk.
	// Zero for the root chunk.
	MarkerLevel int

	// Body is the text under the heading, up to the next heading line.
	Body string

	// Ordinal is the position within the document. Unique per document.
	Ordinal int

	// Version starts at 1 and increases on every edit and on deletion.
	Version int64

	// Deleted marks a soft-deleted chunk.
	Deleted bool

	// UpdatedAt is when the chunk last changed.
	UpdatedAt time.Time
}

// Level returns the depth of the chunk in the heading tree.
// The root chunk has level 0.
func (c Chunk) Level() int {
	return len(c.HeadingPath)
}

// IsRoot reports whether the chunk holds the text before the first heading.
func (c Chunk) IsRoot() bool {
	return len(c.HeadingPath) == 0
}

// TopicPath returns the heading path prefixed with the document title.
func (c Chunk) TopicPath(docTitle string) []string {
	path := make([]string, 0, len(c.HeadingPath)+1)
	path = append(path, docTitle)
	return append(path, c.HeadingPath...)
}

// HasPrefix reports whether the heading path starts with prefix.
func (c Chunk) HasPrefix(prefix []string) bool {
	if len(prefix) > len(c.HeadingPath) {
		return false
	}
	for i, seg := range prefix {
		if c.HeadingPath[i] != seg {
			return false
		}
	}
	return true
}

// Render returns the chunk as Markdown with its heading marker re-inserted.
func (c Chunk) Render() string {
	if c.IsRoot() {
		return c.Body
	}
	level := c.MarkerLevel
	if level < 1 {
		level = 1
	}
	return strings.Repeat("#", level) + " " + c.Title + "\n" + c.Body
}

// ChunkDraft is chunker output before persistence assigns ids and versions.
type ChunkDraft struct {
	// HeadingPath lists heading titles, excluding the document title.
	HeadingPath []string

	// Title is the leaf heading text.
	Title string

	// MarkerLevel is the heading marker level, 0 for the root draft.
	MarkerLevel int

	// Body is the text under the heading.
	Body string

	// Ordinal is the position within the document.
	Ordinal int
}

// Level returns the depth of the draft in the heading tree.
func (d ChunkDraft) Level() int {
	return len(d.HeadingPath)
}

// DocumentTitle derives a document title from a file name by dropping
// directories and the extension.
func DocumentTitle(filename string) string {
	name := filename
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}
