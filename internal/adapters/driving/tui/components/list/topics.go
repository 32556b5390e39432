// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sercha-kb/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// linesPerTopic is the rendered height of one entry.
const linesPerTopic = 2

// TopicList displays resolved topics in a navigable list.
type TopicList struct {
	topics   []domain.TopicCandidate
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewTopicList creates an empty topic list.
func NewTopicList(s *styles.Styles) *TopicList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &TopicList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the list.
func (l *TopicList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation keys.
func (l *TopicList) Update(msg tea.Msg) (*TopicList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			l.MoveUp()
		case "down", "j":
			l.MoveDown()
		}
	}
	return l, nil
}

// View renders the visible window of topics around the selection.
func (l *TopicList) View() string {
	if len(l.topics) == 0 {
		return l.styles.Muted.Render("No matching topics")
	}

	lines := make([]string, 0, len(l.topics)*linesPerTopic+2)
	lines = append(lines, l.styles.Subtitle.Render(fmt.Sprintf("Topics (%d)", len(l.topics))), "")

	visible := max((l.height-4)/linesPerTopic, 1)
	start := 0
	if l.selected >= visible {
		start = l.selected - visible + 1
	}
	end := min(start+visible, len(l.topics))

	for i := start; i < end; i++ {
		lines = append(lines, l.renderTopic(i, &l.topics[i]))
	}

	return strings.Join(lines, "\n")
}

func (l *TopicList) renderTopic(index int, t *domain.TopicCandidate) string {
	indicator := "  "
	if index == l.selected {
		indicator = "> "
	}

	path := domain.FormatTopicPath(t.HeadingPath)
	maxPath := max(l.width-16, 10)
	if len(path) > maxPath {
		path = "..." + path[len(path)-maxPath+3:]
	}
	score := fmt.Sprintf("%.4f", t.Score)

	var head string
	if index == l.selected {
		head = l.styles.Selected.Render(fmt.Sprintf("%s%-*s  %s", indicator, maxPath, path, score))
	} else {
		head = l.styles.Path.Render(fmt.Sprintf("%s%-*s  ", indicator, maxPath, path)) +
			l.styles.Muted.Render(score)
	}

	detail := "    " + t.Filename
	if t.LexicalRank > 0 {
		detail += fmt.Sprintf("  lexical #%d", t.LexicalRank)
	}
	if t.VectorRank > 0 {
		detail += fmt.Sprintf("  vector #%d", t.VectorRank)
	}

	return head + "\n" + l.styles.Muted.Render(detail)
}

// SetTopics replaces the list contents and resets the selection.
func (l *TopicList) SetTopics(topics []domain.TopicCandidate) {
	l.topics = topics
	l.selected = 0
}

// Topics returns the current topics.
func (l *TopicList) Topics() []domain.TopicCandidate {
	return l.topics
}

// Selected returns the index of the selected topic.
func (l *TopicList) Selected() int {
	return l.selected
}

// SetSelected sets the selected index. Out of range values are ignored.
func (l *TopicList) SetSelected(index int) {
	if index >= 0 && index < len(l.topics) {
		l.selected = index
	}
}

// SelectedTopic returns the selected topic, or nil if the list is empty.
func (l *TopicList) SelectedTopic() *domain.TopicCandidate {
	if l.selected < 0 || l.selected >= len(l.topics) {
		return nil
	}
	return &l.topics[l.selected]
}

// MoveUp moves selection up.
func (l *TopicList) MoveUp() {
	if l.selected > 0 {
		l.selected--
	}
}

// MoveDown moves selection down.
func (l *TopicList) MoveDown() {
	if l.selected < len(l.topics)-1 {
		l.selected++
	}
}

// SetDimensions sets the component dimensions.
func (l *TopicList) SetDimensions(width, height int) {
	l.width = width
	l.height = height
}

// Count returns the number of topics.
func (l *TopicList) Count() int {
	return len(l.topics)
}

// IsEmpty returns whether the list is empty.
func (l *TopicList) IsEmpty() bool {
	return len(l.topics) == 0
}
