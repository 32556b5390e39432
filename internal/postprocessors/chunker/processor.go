// Package chunker provides a heading-aware chunking processor.
//
// A document is split at every ATX heading line outside fenced code blocks.
// Each heading opens one chunk whose body runs up to the next heading line,
// so bodies are disjoint and concatenating them in ordinal order reproduces
// the document minus its heading lines.
package chunker

import (
	"context"
	"strings"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// DefaultMaxLevel is the deepest heading marker that opens a chunk.
const DefaultMaxLevel = 6

// Processor splits structured text into heading-scoped chunk drafts.
// It implements the PostProcessor interface.
type Processor struct {
	maxLevel int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithMaxLevel sets the deepest heading level that opens a chunk.
// Deeper headings stay in the body of their parent.
func WithMaxLevel(level int) Option {
	return func(p *Processor) {
		if level >= 1 && level <= 6 {
			p.maxLevel = level
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{maxLevel: DefaultMaxLevel}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits the text into drafts.
// Input drafts are ignored; this processor creates them.
func (p *Processor) Process(_ context.Context, text string, _ []domain.ChunkDraft) ([]domain.ChunkDraft, error) {
	return p.Split(text), nil
}

// Split splits text with the default options.
func Split(text string) []domain.ChunkDraft {
	return New().Split(text)
}

type openHeading struct {
	level int
	title string
}

// Split returns the drafts for text in document order.
// Text before the first heading becomes a root draft with an empty heading
// path. Headings without body text still produce drafts.
func (p *Processor) Split(text string) []domain.ChunkDraft {
	if text == "" {
		return nil
	}

	var (
		drafts []domain.ChunkDraft
		stack  []openHeading
		fence  fenceState
	)

	// current is the draft collecting body bytes; nil until something opens.
	var current *domain.ChunkDraft
	bodyStart := 0

	flush := func(end int) {
		if current == nil {
			if end > 0 {
				drafts = append(drafts, domain.ChunkDraft{Body: text[:end], Ordinal: len(drafts)})
			}
			return
		}
		current.Body = text[bodyStart:end]
		current.Ordinal = len(drafts)
		drafts = append(drafts, *current)
	}

	for pos := 0; pos < len(text); {
		end := strings.IndexByte(text[pos:], '\n')
		next := len(text)
		if end >= 0 {
			next = pos + end + 1
		}
		line := strings.TrimRight(text[pos:next], "\r\n")

		if fence.consume(line) {
			pos = next
			continue
		}

		level, title, ok := parseHeading(line)
		if !ok || level > p.maxLevel {
			pos = next
			continue
		}

		flush(pos)

		for len(stack) > 0 && stack[len(stack)-1].level >= level {
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, openHeading{level: level, title: title})

		path := make([]string, len(stack))
		for i, h := range stack {
			path[i] = h.title
		}
		current = &domain.ChunkDraft{
			HeadingPath: path,
			Title:       title,
			MarkerLevel: level,
		}
		bodyStart = next
		pos = next
	}

	flush(len(text))
	return drafts
}

// parseHeading recognises an ATX heading line: up to three spaces of
// indentation, one to six '#', then a space, a tab or the end of the line.
func parseHeading(line string) (int, string, bool) {
	indent := 0
	for indent < len(line) && indent < 4 && line[indent] == ' ' {
		indent++
	}
	if indent > 3 {
		return 0, "", false
	}
	rest := line[indent:]

	level := 0
	for level < len(rest) && rest[level] == '#' {
		level++
	}
	if level == 0 || level > 6 {
		return 0, "", false
	}
	rest = rest[level:]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return 0, "", false
	}

	return level, headingText(rest), true
}

// headingText trims whitespace and an optional closing '#' sequence.
func headingText(s string) string {
	s = strings.TrimSpace(s)
	trimmed := strings.TrimRight(s, "#")
	if trimmed == "" {
		return ""
	}
	if trimmed != s {
		last := trimmed[len(trimmed)-1]
		if last == ' ' || last == '\t' {
			s = strings.TrimSpace(trimmed)
		}
	}
	return s
}

// fenceState tracks fenced code blocks, inside which '#' lines are code.
type fenceState struct {
	marker byte
	length int
}

// consume reports whether line is a fence line or inside a fence.
func (f *fenceState) consume(line string) bool {
	trimmed := strings.TrimLeft(line, " ")
	if len(line)-len(trimmed) > 3 {
		return f.marker != 0
	}

	n := 0
	var ch byte
	if trimmed != "" && (trimmed[0] == '`' || trimmed[0] == '~') {
		ch = trimmed[0]
		for n < len(trimmed) && trimmed[n] == ch {
			n++
		}
	}

	if f.marker == 0 {
		if n >= 3 {
			f.marker, f.length = ch, n
			return true
		}
		return false
	}

	if ch == f.marker && n >= f.length && strings.TrimSpace(trimmed[n:]) == "" {
		f.marker, f.length = 0, 0
	}
	return true
}
