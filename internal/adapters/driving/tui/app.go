package tui

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sercha-kb/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-kb/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-kb/internal/adapters/driving/tui/views/content"
	"github.com/custodia-labs/sercha-kb/internal/adapters/driving/tui/views/documents"
	"github.com/custodia-labs/sercha-kb/internal/adapters/driving/tui/views/menu"
	"github.com/custodia-labs/sercha-kb/internal/adapters/driving/tui/views/outline"
	"github.com/custodia-labs/sercha-kb/internal/adapters/driving/tui/views/search"
)

// App is the main TUI application following the Elm architecture.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles

	menuView      *menu.View
	searchView    *search.View
	documentsView *documents.View
	contentView   *content.View
	outlineView   *outline.View

	currentView messages.ViewType
	err         error

	width  int
	height int
	ready  bool
}

var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	return &App{
		ports:         ports,
		ctx:           context.Background(),
		styles:        s,
		menuView:      menu.NewView(s, ports.Corpus != nil),
		searchView:    search.NewView(s, nil, ports.Resolution),
		documentsView: documents.NewView(s, ports.Corpus),
		contentView:   content.NewView(s, ports.Retrieval),
		outlineView:   outline.NewView(s, ports.Corpus),
		currentView:   messages.ViewMenu,
	}, nil
}

// WithContext sets the context passed to every service call.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.searchView.WithContext(ctx)
	a.documentsView.WithContext(ctx)
	a.contentView.WithContext(ctx)
	a.outlineView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tea.SetWindowTitle("sercha-kb"),
	)
}

// Update implements tea.Model.
//
//nolint:gocyclo // central message router
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.currentView == messages.ViewHelp {
			if msg.Type == tea.KeyEsc {
				a.currentView = messages.ViewMenu
			}
			return a, nil
		}
		return a, a.forward(msg)

	case messages.ViewChanged:
		a.currentView = msg.View
		switch msg.View {
		case messages.ViewSearch:
			// Returning from a topic keeps the previous results.
			if len(a.searchView.Topics()) == 0 {
				a.searchView.Reset()
			}
			return a, a.searchView.Init()
		case messages.ViewDocuments:
			if len(a.documentsView.Documents()) == 0 {
				return a, a.documentsView.Load()
			}
		case messages.ViewMenu, messages.ViewHelp, messages.ViewContent, messages.ViewOutline:
		}
		return a, nil

	case messages.ResolveCompleted:
		a.searchView, cmd = a.searchView.Update(msg)
		a.err = msg.Err
		return a, cmd

	case messages.TopicSelected:
		a.currentView = messages.ViewContent
		return a, a.contentView.ShowTopic(msg.Topic, messages.ViewSearch)

	case messages.DocumentSelected:
		a.currentView = messages.ViewContent
		return a, a.contentView.ShowDocument(msg.Document, messages.ViewDocuments)

	case messages.OutlineRequested:
		a.currentView = messages.ViewOutline
		return a, a.outlineView.Load(msg.Document)

	case messages.ContentLoaded:
		a.contentView, cmd = a.contentView.Update(msg)
		a.err = msg.Err
		return a, cmd

	case messages.OutlineLoaded:
		a.outlineView, cmd = a.outlineView.Update(msg)
		a.err = msg.Err
		return a, cmd

	case messages.DocumentsLoaded, messages.DocumentDeleted:
		a.documentsView, cmd = a.documentsView.Update(msg)
		return a, cmd

	case messages.ErrorOccurred:
		a.err = msg.Err
		return a, a.forward(msg)

	case messages.Quit:
		return a, tea.Quit
	}

	return a, a.forward(msg)
}

// forward hands msg to the active view.
func (a *App) forward(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.currentView {
	case messages.ViewMenu:
		a.menuView, cmd = a.menuView.Update(msg)
	case messages.ViewSearch:
		a.searchView, cmd = a.searchView.Update(msg)
	case messages.ViewDocuments:
		a.documentsView, cmd = a.documentsView.Update(msg)
	case messages.ViewContent:
		a.contentView, cmd = a.contentView.Update(msg)
	case messages.ViewOutline:
		a.outlineView, cmd = a.outlineView.Update(msg)
	case messages.ViewHelp:
	}
	return cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewSearch:
		return a.searchView.View()
	case messages.ViewDocuments:
		return a.documentsView.View()
	case messages.ViewContent:
		return a.contentView.View()
	case messages.ViewOutline:
		return a.outlineView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	default:
		return a.menuView.View()
	}
}

func (a *App) viewHelp() string {
	return a.styles.Title.Render("Help") + `

Navigation:
  esc         Back
  ctrl+c      Quit

Resolve:
  (type)      Describe the topic you need
  enter       Rank matching topics
  j/k, ↑/↓    Move through topics
  enter       Read the selected topic
  n, /        New query

Reader:
  j/k, ↑/↓    Scroll
  PgUp/PgDn   Page
  g/G         Top/bottom

Documents:
  enter       Show content, outline, or delete
  r           Reload

` + a.styles.Help.Render("[esc] back to menu")
}

// Run starts the TUI on the terminal and blocks until it exits or ctx ends.
func (a *App) Run(ctx context.Context) error {
	return a.run(ctx, tea.WithAltScreen())
}

// RunWith runs the TUI against the given streams without the alternate screen.
func (a *App) RunWith(ctx context.Context, in io.Reader, out io.Writer) error {
	return a.run(ctx, tea.WithInput(in), tea.WithOutput(out))
}

func (a *App) run(ctx context.Context, opts ...tea.ProgramOption) error {
	a.WithContext(ctx)
	p := tea.NewProgram(a, append(opts, tea.WithContext(ctx))...)
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has received its dimensions.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions on every view.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.menuView.SetDimensions(width, height)
	a.searchView.SetDimensions(width, height)
	a.documentsView.SetDimensions(width, height)
	a.contentView.SetDimensions(width, height)
	a.outlineView.SetDimensions(width, height)
}
