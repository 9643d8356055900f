package scan

import (
	"path/filepath"
	"strings"
)

const (
	hiddenPrefix     = "."
	currentDirectory = "."
)

// PathName returns the final component of path, or an empty string when the
// path has none ("", "/", ".").
func PathName(path string) string {
	components := pathComponents(path)
	if len(components) == 0 {
		return ""
	}
	return components[len(components)-1]
}

// PathLength returns the number of components in path: "/a/b/c" has 3.
// The volume, the root separator and a bare "." do not count.
func PathLength(path string) int {
	return len(pathComponents(path))
}

// IsHidden reports whether the final component of path starts with a dot.
func IsHidden(path string) bool {
	return strings.HasPrefix(PathName(path), hiddenPrefix)
}

func pathComponents(path string) []string {
	if path == "" {
		return nil
	}
	cleanPath := filepath.Clean(path)
	cleanPath = strings.TrimPrefix(cleanPath, filepath.VolumeName(cleanPath))
	cleanPath = strings.Trim(cleanPath, string(filepath.Separator))
	if cleanPath == "" || cleanPath == currentDirectory {
		return nil
	}
	return strings.Split(cleanPath, string(filepath.Separator))
}
