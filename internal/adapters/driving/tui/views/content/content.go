// Package content provides the scrolling markdown reader for the TUI.
// It shows either one resolved topic or a whole exported document.
package content

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

// ErrNoRetrievalService indicates that no retrieval service was provided.
var ErrNoRetrievalService = errors.New("retrieval service is required")

// View is the content reader.
type View struct {
	styles    *styles.Styles
	retrieval driving.RetrievalService
	ctx       context.Context

	title        string
	content      string
	lines        []string
	back         messages.ViewType
	scrollOffset int
	width        int
	height       int
	ready        bool
	loading      bool
	err          error
}

// NewView creates a new content view.
func NewView(s *styles.Styles, retrieval driving.RetrievalService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:    s,
		retrieval: retrieval,
		ctx:       context.Background(),
		back:      messages.ViewMenu,
	}
}

// WithContext sets the context for retrieval calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// ShowTopic loads the section behind a resolved topic. Esc returns to back.
func (v *View) ShowTopic(topic domain.TopicCandidate, back messages.ViewType) tea.Cmd {
	v.start(domain.FormatTopicPath(topic.HeadingPath), back)

	ctx, retrieval, title := v.ctx, v.retrieval, v.title
	return func() tea.Msg {
		if retrieval == nil {
			return messages.ContentLoaded{Title: title, Err: ErrNoRetrievalService}
		}
		docs, err := retrieval.GetDocs(ctx, []string{topic.TopicID})
		if err != nil {
			return messages.ContentLoaded{Title: title, Err: err}
		}
		if len(docs) == 0 || docs[0].Status != domain.DocStatusOK {
			return messages.ContentLoaded{
				Title: title,
				Err:   fmt.Errorf("topic %s: %w", topic.TopicID, domain.ErrNotFound),
			}
		}
		return messages.ContentLoaded{Title: title, Content: docs[0].Content}
	}
}

// ShowDocument loads a whole document as markdown. Esc returns to back.
func (v *View) ShowDocument(doc domain.Document, back messages.ViewType) tea.Cmd {
	v.start(doc.Filename, back)

	ctx, retrieval, title := v.ctx, v.retrieval, v.title
	return func() tea.Msg {
		if retrieval == nil {
			return messages.ContentLoaded{Title: title, Err: ErrNoRetrievalService}
		}
		md, err := retrieval.Export(ctx, doc.ID)
		return messages.ContentLoaded{Title: title, Content: md, Err: err}
	}
}

func (v *View) start(title string, back messages.ViewType) {
	v.title = title
	v.back = back
	v.content = ""
	v.lines = nil
	v.scrollOffset = 0
	v.err = nil
	v.loading = true
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles messages for the content view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.ContentLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.content = msg.Content
		v.wrapContent()
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
		v.scrollTo(v.scrollOffset - 1)
	case "down", "j":
		v.scrollTo(v.scrollOffset + 1)
	case "pgup", "ctrl+u":
		v.scrollTo(v.scrollOffset - v.visibleLines())
	case "pgdown", "ctrl+d", " ":
		v.scrollTo(v.scrollOffset + v.visibleLines())
	case "home", "g":
		v.scrollTo(0)
	case "end", "G":
		v.scrollTo(v.maxScrollOffset())
	case "esc":
		back := v.back
		return v, func() tea.Msg {
			return messages.ViewChanged{View: back}
		}
	}
	return v, nil
}

func (v *View) scrollTo(offset int) {
	v.scrollOffset = min(max(offset, 0), v.maxScrollOffset())
}

// wrapContent hard-wraps the content to the view width.
func (v *View) wrapContent() {
	if v.content == "" {
		v.lines = nil
		return
	}

	width := max(v.width-4, 20)
	raw := strings.Split(strings.TrimRight(v.content, "\n"), "\n")
	v.lines = make([]string, 0, len(raw))
	for _, line := range raw {
		runes := []rune(line)
		for len(runes) > width {
			v.lines = append(v.lines, string(runes[:width]))
			runes = runes[width:]
		}
		v.lines = append(v.lines, string(runes))
	}
}

func (v *View) visibleLines() int {
	// title, separator, scroll indicator and help
	return max(v.height-6, 1)
}

func (v *View) maxScrollOffset() int {
	return max(len(v.lines)-v.visibleLines(), 0)
}

// View renders the content view.
func (v *View) View() string {
	var b strings.Builder

	title := v.title
	if title == "" {
		title = "Content"
	}
	b.WriteString(v.styles.Path.Render(title))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", min(max(v.width-4, 1), 60)))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case len(v.lines) == 0:
		b.WriteString(v.styles.Muted.Render("(No content)"))
	default:
		v.renderLines(&b)
	}

	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render("[↑/↓/PgUp/PgDn] scroll  [g/G] top/bottom  [esc] back"))
	return b.String()
}

func (v *View) renderLines(b *strings.Builder) {
	visible := v.visibleLines()
	end := min(v.scrollOffset+visible, len(v.lines))
	for i := v.scrollOffset; i < end; i++ {
		line := v.lines[i]
		if strings.HasPrefix(line, "#") {
			b.WriteString(v.styles.Heading.Render(line))
		} else {
			b.WriteString(v.styles.Normal.Render(line))
		}
		b.WriteString("\n")
	}

	if len(v.lines) > visible {
		pct := 0
		if v.maxScrollOffset() > 0 {
			pct = v.scrollOffset * 100 / v.maxScrollOffset()
		}
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d%%] Line %d-%d of %d",
			pct, v.scrollOffset+1, end, len(v.lines))))
	}
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.wrapContent()
	v.scrollTo(v.scrollOffset)
}

// Title returns the heading of the loaded content.
func (v *View) Title() string {
	return v.title
}

// Content returns the loaded markdown.
func (v *View) Content() string {
	return v.content
}

// Back returns the view Esc navigates to.
func (v *View) Back() messages.ViewType {
	return v.back
}

// Loading reports whether a load is in flight.
func (v *View) Loading() bool {
	return v.loading
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
