// Package outline shows a document's metadata and heading tree.
package outline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sercha-kb/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-kb/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
)

// ErrNoCorpusService indicates that no corpus service was provided.
var ErrNoCorpusService = errors.New("corpus service is required")

const timeLayout = "2006-01-02 15:04:05"

// View is the document outline view.
type View struct {
	styles *styles.Styles
	corpus driving.CorpusService
	ctx    context.Context

	document     *domain.Document
	chunks       []domain.Chunk
	scrollOffset int
	width        int
	height       int
	ready        bool
	loading      bool
	err          error
}

// NewView creates a new outline view.
func NewView(s *styles.Styles, corpus driving.CorpusService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles: s,
		corpus: corpus,
		ctx:    context.Background(),
	}
}

// WithContext sets the context for corpus calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Load shows doc and returns a command fetching its chunks.
func (v *View) Load(doc domain.Document) tea.Cmd {
	v.document = &doc
	v.chunks = nil
	v.scrollOffset = 0
	v.err = nil
	v.loading = true

	ctx, corpus := v.ctx, v.corpus
	return func() tea.Msg {
		if corpus == nil {
			return messages.OutlineLoaded{Document: doc, Err: ErrNoCorpusService}
		}
		chunks, err := corpus.ListChunks(ctx, doc.ID)
		return messages.OutlineLoaded{Document: doc, Chunks: chunks, Err: err}
	}
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles messages for the outline view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.OutlineLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		doc := msg.Document
		v.document = &doc
		v.chunks = msg.Chunks
		v.err = nil
		return v, nil

	case messages.ErrorOccurred:
		v.loading = false
		v.err = msg.Err
		return v, nil
	}

	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.scrollOffset > 0 {
			v.scrollOffset--
		}
	case "down", "j":
		if v.scrollOffset < v.maxScrollOffset() {
			v.scrollOffset++
		}
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewDocuments}
		}
	}
	return v, nil
}

func (v *View) visibleLines() int {
	return max(v.height-6, 1)
}

func (v *View) maxScrollOffset() int {
	return max(len(v.buildContent())-v.visibleLines(), 0)
}

// buildContent returns the metadata fields followed by the chunk tree.
func (v *View) buildContent() []string {
	if v.document == nil {
		return nil
	}
	d := v.document

	lines := []string{
		formatField("ID", d.ID),
		formatField("Filename", d.Filename),
		formatField("Title", d.Title),
		formatField("SHA-256", d.SourceHash),
	}
	if !d.ImportedAt.IsZero() {
		lines = append(lines, formatField("Imported", d.ImportedAt.Format(timeLayout)))
	}
	if !d.UpdatedAt.IsZero() {
		lines = append(lines, formatField("Updated", d.UpdatedAt.Format(timeLayout)))
	}

	lines = append(lines, "", fmt.Sprintf("Chunks (%d):", len(v.chunks)))
	for _, c := range v.chunks {
		title := c.Title
		indent := "  "
		if c.IsRoot() {
			title = "(root)"
		} else {
			indent += strings.Repeat("  ", c.Level()-1)
		}
		lines = append(lines, fmt.Sprintf("%s%s  v%d", indent, title, c.Version))
	}
	return lines
}

func formatField(label, value string) string {
	return fmt.Sprintf("%-10s %s", label+":", value)
}

// View renders the outline.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Document Outline"))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", min(max(v.width-4, 1), 60)))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading outline..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case v.document == nil:
		b.WriteString(v.styles.Muted.Render("No document selected"))
	default:
		v.renderLines(&b)
	}

	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render("[↑/↓] scroll  [esc] back"))
	return b.String()
}

func (v *View) renderLines(b *strings.Builder) {
	lines := v.buildContent()
	visible := v.visibleLines()
	end := min(v.scrollOffset+visible, len(lines))

	for i := v.scrollOffset; i < end; i++ {
		line := lines[i]
		switch {
		case strings.HasPrefix(line, "Chunks ("):
			b.WriteString(v.styles.Subtitle.Render(line))
		case strings.HasPrefix(line, "  "):
			b.WriteString(v.styles.Path.Render(line))
		default:
			if label, value, ok := strings.Cut(line, ":"); ok {
				b.WriteString(v.styles.Subtitle.Render(label + ":"))
				b.WriteString(v.styles.Normal.Render(value))
			} else {
				b.WriteString(v.styles.Normal.Render(line))
			}
		}
		b.WriteString("\n")
	}

	if len(lines) > visible {
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [Line %d-%d of %d]",
			v.scrollOffset+1, end, len(lines))))
	}
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Document returns the document being shown.
func (v *View) Document() *domain.Document {
	return v.document
}

// Chunks returns the loaded chunks.
func (v *View) Chunks() []domain.Chunk {
	return v.chunks
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
