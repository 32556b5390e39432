// Package search provides the topic resolution view for the TUI.
package search

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sercha-kb/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/sercha-kb/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/sercha-kb/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/sercha-kb/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-kb/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-kb/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
)

// View is the query input, topic list and status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QueryInput
	list      *list.TopicList
	statusbar *status.Bar

	resolution driving.ResolutionService
	ctx        context.Context

	width      int
	height     int
	ready      bool
	err        error
	degraded   string
	focusInput bool // true while typing, false while navigating topics
}

// NewView creates a new search view.
func NewView(s *styles.Styles, km *keymap.KeyMap, resolution driving.ResolutionService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:     s,
		keymap:     km,
		input:      input.NewQueryInput(s),
		list:       list.NewTopicList(s),
		statusbar:  status.NewBar(s, km),
		resolution: resolution,
		ctx:        context.Background(),
		width:      80,
		height:     24,
		focusInput: true,
	}
}

// WithContext sets the context for resolve calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the search view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.ResolveCompleted:
		v.handleResolveCompleted(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	if v.focusInput {
		v.input, cmd = v.input.Update(msg)
	}
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	if v.focusInput {
		if msg.Type == tea.KeyEnter {
			query := strings.TrimSpace(v.input.Value())
			if query == "" {
				return v, nil
			}
			v.statusbar.SetState(status.StateResolving)
			v.focusInput = false
			v.input.Blur()
			return v, v.resolve(query)
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}

	switch {
	case msg.Type == tea.KeyEnter:
		topic := v.list.SelectedTopic()
		if topic == nil {
			return v, nil
		}
		selected := *topic
		return v, func() tea.Msg {
			return messages.TopicSelected{Topic: selected}
		}
	case keymap.Matches(msg.String(), v.keymap.NewSearch):
		v.focusInput = true
		v.input.SetValue("")
		return v, v.input.Focus()
	}

	v.list, _ = v.list.Update(msg)
	return v, nil
}

func (v *View) resolve(query string) tea.Cmd {
	ctx := v.ctx
	resolution := v.resolution
	return func() tea.Msg {
		if resolution == nil {
			return messages.ErrorOccurred{Err: ErrNoResolutionService}
		}
		res, err := resolution.Resolve(ctx, domain.ResolveRequest{Query: query})
		return messages.ResolveCompleted{Query: query, Result: res, Err: err}
	}
}

func (v *View) handleResolveCompleted(msg messages.ResolveCompleted) {
	if msg.Err != nil {
		v.setError(msg.Err)
		return
	}

	v.err = nil
	v.degraded = ""
	var topics []domain.TopicCandidate
	if msg.Result != nil {
		topics = msg.Result.Topics
		if msg.Result.Degraded {
			v.degraded = msg.Result.DegradedReason
		}
	}
	v.list.SetTopics(topics)
	v.statusbar.SetState(status.StateResults)
	v.statusbar.SetTopics(len(topics), v.degraded != "")
	v.focusInput = false
	v.input.Blur()
}

func (v *View) setError(err error) {
	if err == nil {
		return
	}
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
	v.focusInput = true
	v.input.Focus()
}

// View renders the search view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 10)
	sections = append(sections, v.styles.Title.Render("Resolve a topic"), "", v.input.View(), "")

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}
	if v.degraded != "" {
		sections = append(sections, v.styles.Warning.Render("Keyword matches only: "+v.degraded), "")
	}

	sections = append(sections, v.list.View(), "", v.statusbar.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.list.SetDimensions(width, height-10) // header, input and status bar
	v.statusbar.SetWidth(width)
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Query returns the current query text.
func (v *View) Query() string {
	return v.input.Value()
}

// SetQuery sets the query text.
func (v *View) SetQuery(query string) {
	v.input.SetValue(query)
}

// Topics returns the topics from the last resolution.
func (v *View) Topics() []domain.TopicCandidate {
	return v.list.Topics()
}

// SelectedIndex returns the index of the selected topic.
func (v *View) SelectedIndex() int {
	return v.list.Selected()
}

// Degraded returns the reason the last resolution was keyword only, or "".
func (v *View) Degraded() string {
	return v.degraded
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// Reset returns the view to an empty query.
func (v *View) Reset() {
	v.focusInput = true
	v.input.Focus()
	v.input.SetValue("")
	v.list.SetTopics(nil)
	v.err = nil
	v.degraded = ""
	v.statusbar.Clear()
}

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}
