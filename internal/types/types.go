// Package types defines every cross‑package data structure used by the ctree CLI.
package types

import (
	"fmt"
)

const (
	FormatRaw  = "raw"
	FormatJSON = "json"
	FormatXML  = "xml"
	FormatYAML = "yaml"
)

// FileType is the kind of a classified directory entry.
type FileType int

const (
	FileTypeFile FileType = iota
	FileTypeDirectory
	FileTypeSymlink
)

func (fileType FileType) String() string {
	switch fileType {
	case FileTypeFile:
		return "file"
	case FileTypeDirectory:
		return "directory"
	case FileTypeSymlink:
		return "symlink"
	default:
		return fmt.Sprintf("FileType(%d)", int(fileType))
	}
}

// ValidatedPath is an absolute input path that already passed existence checks.
type ValidatedPath struct {
	AbsolutePath string
	IsDir        bool
}

// TreeItem is one successfully visited file.
type TreeItem struct {
	Path string
}

// NewTreeItem wraps a classified path.
func NewTreeItem(path string) *TreeItem {
	return &TreeItem{Path: path}
}

// EntryError describes a directory entry that could not be classified.
type EntryError struct {
	Path string
	Err  error
}

func (entryError *EntryError) Error() string {
	return fmt.Sprintf("reading entry %s: %v", entryError.Path, entryError.Err)
}

func (entryError *EntryError) Unwrap() error {
	return entryError.Err
}

// ScanEntry is either an Item or an Err, never both.
type ScanEntry struct {
	Item *TreeItem
	Err  error
}

// IsError reports whether the entry carries a failure instead of an item.
func (entry ScanEntry) IsError() bool {
	return entry.Err != nil
}

// OutputSummary captures aggregate information about rendered files.
type OutputSummary struct {
	TotalFiles  int    `json:"totalFiles" xml:"totalFiles" yaml:"totalFiles"`
	TotalErrors int    `json:"totalErrors,omitempty" xml:"totalErrors,omitempty" yaml:"totalErrors,omitempty"`
	TotalSize   string `json:"totalSize" xml:"totalSize" yaml:"totalSize"`
	TotalTokens int    `json:"totalTokens,omitempty" xml:"totalTokens,omitempty" yaml:"totalTokens,omitempty"`
	Model       string `json:"model,omitempty" xml:"model,omitempty" yaml:"model,omitempty"`
}
