// Package plaintext provides the plain text converter and the text
// clean-up shared by the other converters.
package plaintext

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// Ensure Converter implements the interface.
var _ driven.Converter = (*Converter)(nil)

const bom = "\ufeff"

// Converter handles plain text files. Text passes through unchanged apart
// from line endings, so lines starting with '#' still become headings.
type Converter struct{}

// New creates a new plain text converter.
func New() *Converter {
	return &Converter{}
}

// Name returns the converter name.
func (c *Converter) Name() string {
	return "plaintext"
}

// Extensions returns the extensions this converter handles.
func (c *Converter) Extensions() []string {
	return []string{".txt"}
}

// Convert returns the cleaned text.
func (c *Converter) Convert(_ context.Context, filename string, raw []byte) (string, error) {
	text, err := Clean(raw)
	if err != nil {
		return "", fmt.Errorf("%s: %w", filename, err)
	}
	return text, nil
}

// Clean decodes raw as UTF-8, drops a byte order mark and normalises line
// endings to "\n".
func Clean(raw []byte) (string, error) {
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: content is not valid UTF-8", domain.ErrInvalidArgument)
	}
	text := strings.TrimPrefix(string(raw), bom)
	if strings.IndexByte(text, '\r') >= 0 {
		text = strings.ReplaceAll(text, "\r\n", "\n")
		text = strings.ReplaceAll(text, "\r", "\n")
	}
	return text, nil
}
