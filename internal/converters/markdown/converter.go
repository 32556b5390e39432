// Package markdown provides the Markdown converter.
package markdown

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/custodia-labs/sercha-kb/internal/converters/plaintext"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// Ensure Converter implements the interface.
var _ driven.Converter = (*Converter)(nil)

// Converter handles Markdown documents. It parses the document and rewrites
// top-level headings into canonical ATX form: Setext headings become
// "# Title" lines, indentation and closing '#' runs are dropped. All other
// bytes are kept as they are.
type Converter struct {
	md goldmark.Markdown
}

// New creates a new Markdown converter.
func New() *Converter {
	return &Converter{md: goldmark.New()}
}

// Name returns the converter name.
func (c *Converter) Name() string {
	return "markdown"
}

// Extensions returns the extensions this converter handles.
func (c *Converter) Extensions() []string {
	return []string{".md", ".markdown"}
}

// edit replaces src[start:end].
type edit struct {
	start, end int
	repl       string
}

// Convert returns the document with canonical headings.
func (c *Converter) Convert(_ context.Context, filename string, raw []byte) (string, error) {
	cleaned, err := plaintext.Clean(raw)
	if err != nil {
		return "", fmt.Errorf("%s: %w", filename, err)
	}
	src := []byte(cleaned)
	doc := c.md.Parser().Parse(text.NewReader(src))

	var edits []edit
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok {
			continue
		}
		if e, ok := rewriteHeading(src, h); ok {
			edits = append(edits, e)
		}
	}
	if len(edits) == 0 {
		return cleaned, nil
	}

	var b strings.Builder
	b.Grow(len(src))
	pos := 0
	for _, e := range edits {
		b.Write(src[pos:e.start])
		b.WriteString(e.repl)
		pos = e.end
	}
	b.Write(src[pos:])
	return b.String(), nil
}

// rewriteHeading returns the edit that turns h into a canonical ATX line,
// or false when it already is one or has no text.
func rewriteHeading(src []byte, h *ast.Heading) (edit, bool) {
	lines := h.Lines()
	if lines.Len() == 0 {
		return edit{}, false
	}
	first := lines.At(0)
	last := lines.At(lines.Len() - 1)

	start := lineStart(src, first.Start)
	end := lineEnd(src, last.Stop)

	// Only spaces precede the text of a Setext heading; an ATX heading has
	// its marker there.
	setext := len(bytes.TrimLeft(src[start:first.Start], " \t")) == 0
	if setext {
		end = lineEnd(src, end+1)
	}

	parts := make([]string, 0, lines.Len())
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		if s := strings.TrimSpace(string(seg.Value(src))); s != "" {
			parts = append(parts, s)
		}
	}
	title := trimClosingSequence(strings.Join(parts, " "))
	if title == "" {
		return edit{}, false
	}

	repl := strings.Repeat("#", h.Level) + " " + title
	if end > 0 && src[end-1] == '\n' {
		repl += "\n"
	}
	if repl == string(src[start:end]) {
		return edit{}, false
	}
	return edit{start: start, end: end, repl: repl}, true
}

// trimClosingSequence drops a closing run of '#' preceded by a space.
func trimClosingSequence(s string) string {
	trimmed := strings.TrimRight(s, "#")
	if trimmed == s {
		return s
	}
	if trimmed == "" || trimmed[len(trimmed)-1] == ' ' || trimmed[len(trimmed)-1] == '\t' {
		return strings.TrimSpace(trimmed)
	}
	return s
}

// lineStart returns the offset of the first byte of the line holding pos.
func lineStart(src []byte, pos int) int {
	pos = min(pos, len(src))
	if i := bytes.LastIndexByte(src[:pos], '\n'); i >= 0 {
		return i + 1
	}
	return 0
}

// lineEnd returns the offset just past the newline ending the line that
// holds pos, or len(src). A pos directly after a newline is already a line end.
func lineEnd(src []byte, pos int) int {
	if pos > len(src) {
		return len(src)
	}
	if pos > 0 && src[pos-1] == '\n' {
		return pos
	}
	if i := bytes.IndexByte(src[pos:], '\n'); i >= 0 {
		return pos + i + 1
	}
	return len(src)
}
