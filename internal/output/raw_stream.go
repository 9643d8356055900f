package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/tyemirov/ctree/internal/services/stream"
)

const (
	treeBranchConnector = "├── "
	treeLastConnector   = "└── "
	treeBranchPadding   = "│   "
	treeLastPadding     = "    "

	directorySuffix  = "/"
	relativeSplitter = "/"
	errorLineFormat  = "Error: %s\n"
)

// rawNode is a directory or file derived from item relative paths. Directories
// only appear when at least one item lives below them.
type rawNode struct {
	name     string
	item     *stream.ItemEvent
	children []*rawNode
	index    map[string]*rawNode
}

func newRawNode(name string) *rawNode {
	return &rawNode{name: name, index: map[string]*rawNode{}}
}

func (node *rawNode) child(name string) *rawNode {
	if existing, ok := node.index[name]; ok {
		return existing
	}
	created := newRawNode(name)
	node.index[name] = created
	node.children = append(node.children, created)
	return created
}

func (node *rawNode) insert(item *stream.ItemEvent) {
	segments := strings.Split(item.RelativePath, relativeSplitter)
	current := node
	for _, segment := range segments[:len(segments)-1] {
		current = current.child(segment)
	}
	current.child(segments[len(segments)-1]).item = item
}

type rawStreamRenderer struct {
	stdout         io.Writer
	stderr         io.Writer
	includeSummary bool
	summary        summaryAccumulator
	roots          []*rawNode
	current        *rawNode
}

// NewRawStreamRenderer renders each scanned root as an indented tree.
func NewRawStreamRenderer(stdout, stderr io.Writer, includeSummary bool) StreamRenderer {
	return &rawStreamRenderer{
		stdout:         stdout,
		stderr:         stderr,
		includeSummary: includeSummary,
	}
}

func (renderer *rawStreamRenderer) Handle(event stream.Event) error {
	switch event.Kind {
	case stream.EventKindStart:
		renderer.current = newRawNode(event.Root)
		renderer.roots = append(renderer.roots, renderer.current)
	case stream.EventKindItem:
		if event.Item == nil {
			return nil
		}
		if renderer.current == nil {
			renderer.current = newRawNode(event.Root)
			renderer.roots = append(renderer.roots, renderer.current)
		}
		renderer.current.insert(event.Item)
	case stream.EventKindError:
		if event.Err != nil && renderer.stderr != nil {
			_, err := fmt.Fprintf(renderer.stderr, errorLineFormat, event.Err.Message)
			return err
		}
	case stream.EventKindWarning:
		if event.Message != nil && renderer.stderr != nil {
			_, err := fmt.Fprintln(renderer.stderr, event.Message.Message)
			return err
		}
	case stream.EventKindSummary:
		renderer.summary.add(event.Summary)
	case stream.EventKindDone:
		renderer.current = nil
	}
	return nil
}

func (renderer *rawStreamRenderer) Flush() error {
	if renderer.stdout == nil {
		return nil
	}
	for index, root := range renderer.roots {
		if index > 0 {
			if _, err := fmt.Fprintln(renderer.stdout); err != nil {
				return err
			}
		}
		if err := writeTreeRaw(renderer.stdout, root); err != nil {
			return err
		}
	}
	if renderer.includeSummary {
		if _, err := fmt.Fprintln(renderer.stdout); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(renderer.stdout, FormatSummaryLine(renderer.summary.outputSummary())); err != nil {
			return err
		}
	}
	return nil
}

// writeTreeRaw writes the root path followed by its descendants with tree connectors.
func writeTreeRaw(writer io.Writer, root *rawNode) error {
	if root == nil {
		return nil
	}
	if _, err := fmt.Fprintln(writer, root.name); err != nil {
		return err
	}
	return writeRawChildren(writer, root, "")
}

func writeRawChildren(writer io.Writer, node *rawNode, prefix string) error {
	for index, child := range node.children {
		isLast := index == len(node.children)-1
		connector, childPrefix := treeBranchConnector, prefix+treeBranchPadding
		if isLast {
			connector, childPrefix = treeLastConnector, prefix+treeLastPadding
		}
		if _, err := fmt.Fprintf(writer, "%s%s%s\n", prefix, connector, rawLabel(child)); err != nil {
			return err
		}
		if err := writeRawChildren(writer, child, childPrefix); err != nil {
			return err
		}
	}
	return nil
}

func rawLabel(node *rawNode) string {
	if node.item == nil {
		return node.name + directorySuffix
	}
	if node.item.Tokens > 0 {
		return fmt.Sprintf("%s (%d tokens)", node.name, node.item.Tokens)
	}
	return node.name
}
