// Package scan enumerates a directory subtree into a flat, ordered sequence of
// scan entries, honouring a maximum depth and an optional hidden-entry filter.
package scan

import (
	"io/fs"
	"os"

	"go.uber.org/zap"

	"github.com/tyemirov/ctree/internal/types"
)

const (
	// UnlimitedDepth disables the depth limit.
	UnlimitedDepth = -1

	debugReadDirectoryMessage = "skipping unreadable directory"
	debugSymlinkMessage       = "skipping symbolic link"
)

// DirectoryReader lists the entries of one directory in listing order.
type DirectoryReader func(directory string) ([]fs.DirEntry, error)

// Option configures ambient collaborators of a TreeBuilder.
type Option func(*TreeBuilder)

// WithLogger attaches a logger receiving debug diagnostics for skipped
// directories and links.
func WithLogger(logger *zap.Logger) Option {
	return func(treeBuilder *TreeBuilder) {
		if logger != nil {
			treeBuilder.logger = logger
		}
	}
}

// WithDirectoryReader replaces os.ReadDir as the source of directory listings.
func WithDirectoryReader(reader DirectoryReader) Option {
	return func(treeBuilder *TreeBuilder) {
		if reader != nil {
			treeBuilder.readDirectory = reader
		}
	}
}

// TreeBuilder holds the immutable configuration of one scan. The same instance
// must serve every level of the scan so that depth stays relative to the root.
type TreeBuilder struct {
	maxDepth      int
	rootLength    int
	showHidden    bool
	logger        *zap.Logger
	readDirectory DirectoryReader
}

// NewTreeBuilder captures the scan configuration. A negative maxDepth means
// unlimited depth.
func NewTreeBuilder(maxDepth int, rootDirectory string, showHidden bool, options ...Option) *TreeBuilder {
	treeBuilder := &TreeBuilder{
		maxDepth:      maxDepth,
		rootLength:    PathLength(rootDirectory),
		showHidden:    showHidden,
		logger:        zap.NewNop(),
		readDirectory: os.ReadDir,
	}
	for _, option := range options {
		option(treeBuilder)
	}
	return treeBuilder
}

// MaxDepth returns the configured depth limit.
func (treeBuilder *TreeBuilder) MaxDepth() int {
	return treeBuilder.maxDepth
}

// ShowHidden reports whether hidden entries are included.
func (treeBuilder *TreeBuilder) ShowHidden() bool {
	return treeBuilder.showHidden
}

// Depth returns the depth of path relative to the scan root; the root's
// direct children are at depth 0.
func (treeBuilder *TreeBuilder) Depth(path string) int {
	return PathLength(path) - treeBuilder.rootLength - 1
}

// Make lists directory depth-first and returns every file item and per-entry
// error in encounter order. A directory that cannot be listed contributes
// nothing and is not reported.
func (treeBuilder *TreeBuilder) Make(directory string) []types.ScanEntry {
	var results []types.ScanEntry

	entries, readError := treeBuilder.readDirectory(directory)
	if readError != nil {
		treeBuilder.logger.Debug(debugReadDirectoryMessage, zap.String("path", directory), zap.Error(readError))
		return results
	}

	for _, entry := range entries {
		entryPath, fileType, classifyError := Classify(directory, entry)
		if classifyError != nil {
			results = append(results, types.ScanEntry{Err: classifyError})
			continue
		}
		if !treeBuilder.showHidden && IsHidden(entryPath) {
			continue
		}

		switch fileType {
		case types.FileTypeFile:
			results = append(results, types.ScanEntry{Item: types.NewTreeItem(entryPath)})
		case types.FileTypeDirectory:
			if treeBuilder.shouldDescend(entryPath) {
				results = append(results, treeBuilder.Make(entryPath)...)
			}
		case types.FileTypeSymlink:
			treeBuilder.logger.Debug(debugSymlinkMessage, zap.String("path", entryPath))
		}
	}

	return results
}

func (treeBuilder *TreeBuilder) shouldDescend(directoryPath string) bool {
	if treeBuilder.maxDepth < 0 {
		return true
	}
	return treeBuilder.Depth(directoryPath) < treeBuilder.maxDepth
}
