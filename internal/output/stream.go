// Package output renders scan event streams as raw trees or structured documents.
package output

import (
	"fmt"
	"io"

	"github.com/tyemirov/ctree/internal/services/stream"
	"github.com/tyemirov/ctree/internal/types"
)

const (
	indentPrefix = ""
	indentSpacer = "  "

	invalidFormatMessage = "invalid format value '%s'"
)

// StreamRenderer consumes scan events and writes the rendered result on Flush.
type StreamRenderer interface {
	Handle(event stream.Event) error
	Flush() error
}

// NewRenderer returns the renderer for format. Warnings are written to stderr.
func NewRenderer(format string, stdout, stderr io.Writer, includeSummary bool) (StreamRenderer, error) {
	switch format {
	case types.FormatRaw:
		return NewRawStreamRenderer(stdout, stderr, includeSummary), nil
	case types.FormatJSON, types.FormatXML, types.FormatYAML:
		return NewDocumentStreamRenderer(stdout, stderr, format, includeSummary), nil
	default:
		return nil, fmt.Errorf(invalidFormatMessage, format)
	}
}

// IsSupportedFormat reports whether the provided format is recognized.
func IsSupportedFormat(format string) bool {
	switch format {
	case types.FormatRaw, types.FormatJSON, types.FormatXML, types.FormatYAML:
		return true
	default:
		return false
	}
}
