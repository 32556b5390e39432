// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// ResolveCompleted carries ranked topics back to the model.
type ResolveCompleted struct {
	Query  string
	Result *domain.ResolveResult
	Err    error
}

// TopicSelected is sent when a resolved topic is chosen for reading.
type TopicSelected struct {
	Topic domain.TopicCandidate
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewSearch is the topic resolution view.
	ViewSearch
	// ViewDocuments lists imported documents.
	ViewDocuments
	// ViewHelp is the help/keybindings view.
	ViewHelp
	// ViewContent shows topic or document markdown.
	ViewContent
	// ViewOutline shows a document's metadata and chunk tree.
	ViewOutline
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewSearch:
		return "search"
	case ViewDocuments:
		return "documents"
	case ViewHelp:
		return "help"
	case ViewContent:
		return "content"
	case ViewOutline:
		return "outline"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// DocumentsLoaded carries the list of live documents.
type DocumentsLoaded struct {
	Documents []domain.Document
	Err       error
}

// DocumentSelected signals a document was chosen for reading.
type DocumentSelected struct {
	Document domain.Document
}

// OutlineRequested signals a document's outline should be shown.
type OutlineRequested struct {
	Document domain.Document
}

// OutlineLoaded carries a document's chunks in document order.
type OutlineLoaded struct {
	Document domain.Document
	Chunks   []domain.Chunk
	Err      error
}

// ContentLoaded carries markdown for the content view.
type ContentLoaded struct {
	Title   string
	Content string
	Err     error
}

// DocumentDeleted signals a document delete finished.
type DocumentDeleted struct {
	DocumentID string
	Report     domain.IndexReport
	Err        error
}
