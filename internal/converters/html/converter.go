package html

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/custodia-labs/sercha-kb/internal/converters/plaintext"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// Ensure Converter implements the interface.
var _ driven.Converter = (*Converter)(nil)

// Converter handles HTML documents.
type Converter struct{}

// New creates a new HTML converter.
func New() *Converter {
	return &Converter{}
}

// Name returns the converter name.
func (c *Converter) Name() string {
	return "html"
}

// Extensions returns the extensions this converter handles.
func (c *Converter) Extensions() []string {
	return []string{".html", ".htm"}
}

// Convert renders the document body as structured text.
func (c *Converter) Convert(_ context.Context, filename string, raw []byte) (string, error) {
	cleaned, err := plaintext.Clean(raw)
	if err != nil {
		return "", fmt.Errorf("%s: %w", filename, err)
	}
	root, err := html.Parse(strings.NewReader(cleaned))
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", filename, err)
	}

	w := &writer{}
	w.walk(root)
	w.flush()
	return w.String(), nil
}

var skipped = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Svg:      true,
	atom.Template: true,
	atom.Iframe:   true,
	atom.Button:   true,
}

var blocks = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Section: true, atom.Article: true,
	atom.Header: true, atom.Footer: true, atom.Main: true, atom.Nav: true,
	atom.Aside: true, atom.Blockquote: true, atom.Ul: true, atom.Ol: true,
	atom.Li: true, atom.Table: true, atom.Tr: true, atom.Dl: true,
	atom.Dt: true, atom.Dd: true, atom.Figure: true, atom.Figcaption: true,
	atom.Hr: true, atom.Form: true, atom.Address: true, atom.Details: true,
	atom.Summary: true,
}

var headingLevels = map[atom.Atom]int{
	atom.H1: 1, atom.H2: 2, atom.H3: 3, atom.H4: 4, atom.H5: 5, atom.H6: 6,
}

// writer accumulates output. Inline text collects in para until a block
// boundary flushes it.
type writer struct {
	out  strings.Builder
	para strings.Builder
}

func (w *writer) String() string {
	s := strings.TrimRight(w.out.String(), "\n")
	if s == "" {
		return ""
	}
	return s + "\n"
}

func (w *writer) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.para.WriteString(n.Data)
		return
	case html.ElementNode:
		if skipped[n.DataAtom] {
			return
		}
		if level, ok := headingLevels[n.DataAtom]; ok {
			w.heading(level, n)
			return
		}
		switch n.DataAtom {
		case atom.Pre:
			w.pre(n)
			return
		case atom.Br:
			w.para.WriteByte('\n')
			return
		case atom.Td, atom.Th:
			w.para.WriteByte(' ')
		}
	}

	block := n.Type == html.ElementNode && blocks[n.DataAtom]
	if block {
		w.flush()
		if n.DataAtom == atom.Li {
			w.para.WriteString("- ")
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
	if block {
		w.flush()
	}
}

// flush writes the pending paragraph, collapsing whitespace within lines.
func (w *writer) flush() {
	text := w.para.String()
	w.para.Reset()

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" && line != "-" {
			lines = append(lines, escape(line))
		}
	}
	if len(lines) == 0 {
		return
	}
	w.out.WriteString(strings.Join(lines, "\n"))
	w.out.WriteString("\n\n")
}

func (w *writer) heading(level int, n *html.Node) {
	w.flush()
	title := strings.Join(strings.Fields(textOf(n)), " ")
	if title == "" {
		return
	}
	w.out.WriteString(strings.Repeat("#", level))
	w.out.WriteString(" ")
	w.out.WriteString(title)
	w.out.WriteString("\n")
}

func (w *writer) pre(n *html.Node) {
	w.flush()
	code := strings.Trim(textOf(n), "\n")
	if code == "" {
		return
	}
	fence := "```"
	for strings.Contains(code, fence) {
		fence += "`"
	}
	w.out.WriteString(fence + "\n" + code + "\n" + fence + "\n\n")
}

// textOf returns the text content of n's subtree.
func textOf(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
		case n.Type == html.ElementNode && skipped[n.DataAtom]:
			return
		case n.Type == html.ElementNode && n.DataAtom == atom.Br:
			b.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return b.String()
}

// escape keeps a text line from reading as a heading or a code fence.
func escape(line string) string {
	if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "```") || strings.HasPrefix(line, "~~~") {
		return `\` + line
	}
	return line
}
