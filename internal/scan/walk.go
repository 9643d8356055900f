package scan

import (
	"context"
	"io/fs"

	"go.uber.org/zap"

	"github.com/tyemirov/ctree/internal/types"
)

// VisitFunc receives scan entries in the order Make would return them.
type VisitFunc func(entry types.ScanEntry) error

type directoryFrame struct {
	directory string
	entries   []fs.DirEntry
	index     int
}

// Walk yields the same sequence as Make using an explicit stack of pending
// directories instead of recursion. It stops at the first error returned by
// visit or when ctx is done.
func (treeBuilder *TreeBuilder) Walk(ctx context.Context, directory string, visit VisitFunc) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var stack []*directoryFrame
	if frame, ok := treeBuilder.openFrame(directory); ok {
		stack = append(stack, frame)
	}

	for len(stack) > 0 {
		if ctxError := ctx.Err(); ctxError != nil {
			return ctxError
		}

		top := stack[len(stack)-1]
		if top.index >= len(top.entries) {
			stack = stack[:len(stack)-1]
			continue
		}
		entry := top.entries[top.index]
		top.index++

		entryPath, fileType, classifyError := Classify(top.directory, entry)
		if classifyError != nil {
			if visitError := visit(types.ScanEntry{Err: classifyError}); visitError != nil {
				return visitError
			}
			continue
		}
		if !treeBuilder.showHidden && IsHidden(entryPath) {
			continue
		}

		switch fileType {
		case types.FileTypeFile:
			if visitError := visit(types.ScanEntry{Item: types.NewTreeItem(entryPath)}); visitError != nil {
				return visitError
			}
		case types.FileTypeDirectory:
			if !treeBuilder.shouldDescend(entryPath) {
				continue
			}
			if frame, ok := treeBuilder.openFrame(entryPath); ok {
				stack = append(stack, frame)
			}
		case types.FileTypeSymlink:
			treeBuilder.logger.Debug(debugSymlinkMessage, zap.String("path", entryPath))
		}
	}

	return nil
}

func (treeBuilder *TreeBuilder) openFrame(directory string) (*directoryFrame, bool) {
	entries, readError := treeBuilder.readDirectory(directory)
	if readError != nil {
		treeBuilder.logger.Debug(debugReadDirectoryMessage, zap.String("path", directory), zap.Error(readError))
		return nil, false
	}
	return &directoryFrame{directory: directory, entries: entries}, true
}
