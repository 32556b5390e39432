// Package html provides a Converter for HTML documents.
//
// The document is parsed with golang.org/x/net/html. Heading elements
// become ATX heading lines, block elements become paragraphs, <pre> blocks
// become fenced code, and scripts, styles and other non-content elements are
// dropped. Text lines that would read as a heading or a fence are escaped so
// the chunker only splits at real headings.
package html
