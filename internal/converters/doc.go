// Package converters provides implementations of the Converter interface
// for various document formats. Each converter turns raw file bytes into
// structured text whose headings are ATX lines.
//
// Converters are registered with the Registry by file extension at startup.
package converters
