package driven

import "context"

// Converter transforms raw file bytes into structured text: Markdown-like
// text whose headings are ATX lines ("#".."######").
type Converter interface {
	// Name identifies the converter in logs.
	Name() string

	// Extensions returns the lower-case file extensions handled, with dot.
	Extensions() []string

	// Convert returns the structured text for a file.
	Convert(ctx context.Context, filename string, raw []byte) (string, error)
}

// ConverterRegistry selects a converter for a file.
type ConverterRegistry interface {
	// ForFile returns the converter for the file's extension.
	// Returns domain.ErrUnsupportedType when none is registered.
	ForFile(filename string) (Converter, error)
}
