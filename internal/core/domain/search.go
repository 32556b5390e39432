package domain

import "strings"

// TopicSeparator joins topic path segments in a topic id.
const TopicSeparator = " > "

// Resolution limits.
const (
	// DefaultResolveLimit is used when a request does not set a limit.
	DefaultResolveLimit = 5

	// MaxResolveLimit caps the number of topics one request may return.
	MaxResolveLimit = 50
)

// ResolveRequest configures a keyword resolution.
type ResolveRequest struct {
	// Query is free text. Must not be blank.
	Query string

	// Limit is the maximum number of topics. Zero means DefaultResolveLimit.
	Limit int

	// Filenames restricts results to documents whose filename contains one of
	// these values. Empty means no filter.
	Filenames []string
}

// TopicCandidate is one ranked topic. It never carries body text.
type TopicCandidate struct {
	// TopicID is the chunk id, usable as a get-docs key.
	TopicID string

	// DocumentID links to the owning document.
	DocumentID string

	// Filename is the owning document's filename.
	Filename string

	// HeadingPath is the topic path, starting with the document title.
	HeadingPath []string

	// Title is the leaf heading text, or the document title for a root chunk.
	Title string

	// FusedRank is the 1-based position in the result list.
	FusedRank int

	// Score is the fused reciprocal-rank score.
	Score float64

	// LexicalRank is the 1-based lexical rank, 0 when absent from that list.
	LexicalRank int

	// VectorRank is the 1-based vector rank, 0 when absent from that list.
	VectorRank int
}

// ResolveResult is the answer to a ResolveRequest.
type ResolveResult struct {
	// Topics are ordered best first.
	Topics []TopicCandidate

	// Degraded is set when semantic search could not contribute.
	Degraded bool

	// DegradedReason explains a degraded result.
	DegradedReason string
}

// DocStatus is the per-key outcome of a retrieval.
type DocStatus string

// Retrieval statuses.
const (
	DocStatusOK       DocStatus = "ok"
	DocStatusNotFound DocStatus = "not_found"
)

// DocResult is the reconstructed content for one requested topic key.
type DocResult struct {
	// TopicID echoes the requested key.
	TopicID string

	// HeadingPath is the topic path of the resolved section.
	HeadingPath []string

	// Content is the section text with heading markers re-inserted.
	Content string

	// Status is ok or not_found.
	Status DocStatus
}

// FormatTopicPath joins a topic path into a topic id.
func FormatTopicPath(path []string) string {
	return strings.Join(path, TopicSeparator)
}

// ParseTopicPath splits a topic id into its segments.
// Returns nil for a blank key.
func ParseTopicPath(key string) []string {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	parts := strings.Split(key, TopicSeparator)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
