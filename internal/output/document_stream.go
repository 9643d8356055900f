package output

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/tyemirov/ctree/internal/services/stream"
	"github.com/tyemirov/ctree/internal/types"
	"github.com/tyemirov/ctree/internal/utils"
)

const (
	entryTypeFile  = "file"
	entryTypeError = "error"

	yamlIndent = 2
)

// RootListing is the structured form of one scanned root.
type RootListing struct {
	XMLName xml.Name             `json:"-" xml:"root" yaml:"-"`
	Path    string               `json:"path" xml:"path,attr" yaml:"path"`
	Entries []ListingEntry       `json:"entries" xml:"entries>entry" yaml:"entries"`
	Summary *types.OutputSummary `json:"summary,omitempty" xml:"summary,omitempty" yaml:"summary,omitempty"`
}

// ListingEntry is either a file item or a per-entry error, in scan order.
type ListingEntry struct {
	Type         string `json:"type" xml:"type,attr" yaml:"type"`
	Path         string `json:"path,omitempty" xml:"path,attr,omitempty" yaml:"path,omitempty"`
	RelativePath string `json:"relativePath,omitempty" xml:"relativePath,attr,omitempty" yaml:"relativePath,omitempty"`
	Name         string `json:"name,omitempty" xml:"name,attr,omitempty" yaml:"name,omitempty"`
	Depth        *int   `json:"depth,omitempty" xml:"depth,attr,omitempty" yaml:"depth,omitempty"`
	Size         string `json:"size,omitempty" xml:"size,attr,omitempty" yaml:"size,omitempty"`
	Tokens       int    `json:"tokens,omitempty" xml:"tokens,attr,omitempty" yaml:"tokens,omitempty"`
	Model        string `json:"model,omitempty" xml:"model,attr,omitempty" yaml:"model,omitempty"`
	Message      string `json:"message,omitempty" xml:",chardata" yaml:"message,omitempty"`
}

type rootListings struct {
	XMLName xml.Name      `xml:"roots"`
	Roots   []RootListing `xml:"root"`
}

type documentStreamRenderer struct {
	stdout         io.Writer
	stderr         io.Writer
	format         string
	includeSummary bool
	roots          []*RootListing
	current        *RootListing
}

// NewDocumentStreamRenderer buffers every root and writes one JSON, XML or
// YAML document on Flush: a single object for one root, a list otherwise.
func NewDocumentStreamRenderer(stdout, stderr io.Writer, format string, includeSummary bool) StreamRenderer {
	return &documentStreamRenderer{
		stdout:         stdout,
		stderr:         stderr,
		format:         format,
		includeSummary: includeSummary,
	}
}

func (renderer *documentStreamRenderer) Handle(event stream.Event) error {
	switch event.Kind {
	case stream.EventKindStart:
		renderer.startRoot(event.Root)
	case stream.EventKindItem:
		if event.Item == nil {
			return nil
		}
		depth := event.Item.Depth
		listing := renderer.listing(event.Root)
		listing.Entries = append(listing.Entries, ListingEntry{
			Type:         entryTypeFile,
			Path:         event.Item.Path,
			RelativePath: event.Item.RelativePath,
			Name:         event.Item.Name,
			Depth:        &depth,
			Size:         utils.FormatFileSize(event.Item.SizeBytes),
			Tokens:       event.Item.Tokens,
			Model:        event.Item.Model,
		})
	case stream.EventKindError:
		if event.Err == nil {
			return nil
		}
		listing := renderer.listing(event.Root)
		listing.Entries = append(listing.Entries, ListingEntry{
			Type:    entryTypeError,
			Path:    event.Err.Path,
			Message: event.Err.Message,
		})
	case stream.EventKindWarning:
		if event.Message != nil && renderer.stderr != nil {
			_, err := fmt.Fprintln(renderer.stderr, event.Message.Message)
			return err
		}
	case stream.EventKindSummary:
		if renderer.includeSummary {
			accumulator := summaryAccumulator{}
			accumulator.add(event.Summary)
			renderer.listing(event.Root).Summary = accumulator.outputSummary()
		}
	case stream.EventKindDone:
		renderer.current = nil
	}
	return nil
}

func (renderer *documentStreamRenderer) startRoot(root string) *RootListing {
	listing := &RootListing{Path: root, Entries: []ListingEntry{}}
	renderer.roots = append(renderer.roots, listing)
	renderer.current = listing
	return listing
}

func (renderer *documentStreamRenderer) listing(root string) *RootListing {
	if renderer.current == nil {
		return renderer.startRoot(root)
	}
	return renderer.current
}

func (renderer *documentStreamRenderer) Flush() error {
	if renderer.stdout == nil {
		return nil
	}
	listings := make([]RootListing, 0, len(renderer.roots))
	for _, listing := range renderer.roots {
		listings = append(listings, *listing)
	}
	encoded, encodeErr := encodeListings(renderer.format, listings)
	if encodeErr != nil {
		return encodeErr
	}
	_, writeErr := renderer.stdout.Write(encoded)
	return writeErr
}

func encodeListings(format string, listings []RootListing) ([]byte, error) {
	var value interface{} = listings
	if len(listings) == 1 {
		value = listings[0]
	}

	switch format {
	case types.FormatJSON:
		encoded, err := json.MarshalIndent(value, indentPrefix, indentSpacer)
		if err != nil {
			return nil, err
		}
		return append(encoded, '\n'), nil
	case types.FormatXML:
		if len(listings) != 1 {
			value = rootListings{Roots: listings}
		}
		encoded, err := xml.MarshalIndent(value, indentPrefix, indentSpacer)
		if err != nil {
			return nil, err
		}
		return append([]byte(xml.Header), append(encoded, '\n')...), nil
	case types.FormatYAML:
		var buffer bytes.Buffer
		encoder := yaml.NewEncoder(&buffer)
		encoder.SetIndent(yamlIndent)
		if err := encoder.Encode(value); err != nil {
			return nil, err
		}
		if err := encoder.Close(); err != nil {
			return nil, err
		}
		return buffer.Bytes(), nil
	default:
		return nil, fmt.Errorf(invalidFormatMessage, format)
	}
}
