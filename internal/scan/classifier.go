package scan

import (
	"io/fs"
	"path/filepath"

	"github.com/tyemirov/ctree/internal/types"
)

// Classify resolves the full path of a directory entry and determines its kind
// from lstat metadata. A symlink is reported as such and never as its target.
func Classify(parentDirectory string, entry fs.DirEntry) (string, types.FileType, error) {
	entryPath := filepath.Join(parentDirectory, entry.Name())
	info, infoError := entry.Info()
	if infoError != nil {
		return entryPath, types.FileTypeFile, &types.EntryError{Path: entryPath, Err: infoError}
	}
	return entryPath, fileTypeFromMode(info.Mode()), nil
}

func fileTypeFromMode(mode fs.FileMode) types.FileType {
	switch {
	case mode&fs.ModeSymlink != 0:
		return types.FileTypeSymlink
	case mode.IsDir():
		return types.FileTypeDirectory
	default:
		return types.FileTypeFile
	}
}
