package utils

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime/debug"
	"strings"
)

const (
	unknownVersion     = "unknown"
	developmentVersion = "(devel)"
)

var errGitDirectoryNotFound = errors.New(".git directory not found")

// Version can be set at link time with -ldflags "-X ...utils.Version=v1.2.3".
var Version = EmptyString

// GetApplicationVersion reports the linked version, the module version from
// build info, or a git description of the working tree, in that order.
func GetApplicationVersion() string {
	if Version != EmptyString {
		return Version
	}
	if buildInfo, ok := debug.ReadBuildInfo(); ok && buildInfo.Main.Version != "" && buildInfo.Main.Version != developmentVersion {
		return buildInfo.Main.Version
	}
	repositoryDirectory, findError := findGitDirectory(".")
	if findError != nil {
		return unknownVersion
	}
	describeVariants := [][]string{
		{"describe", "--tags", "--exact-match"},
		{"describe", "--tags", "--long", "--dirty"},
	}
	for _, arguments := range describeVariants {
		// #nosec G204
		gitCommand := exec.Command("git", arguments...)
		gitCommand.Dir = repositoryDirectory
		if output, runError := gitCommand.Output(); runError == nil && len(output) > 0 {
			return strings.TrimSpace(string(output))
		}
	}
	return unknownVersion
}

// findGitDirectory returns the closest directory at or above startDirectory
// that contains a .git directory.
func findGitDirectory(startDirectory string) (string, error) {
	currentDirectory, absoluteError := filepath.Abs(startDirectory)
	if absoluteError != nil {
		return "", absoluteError
	}
	for {
		info, statError := os.Stat(filepath.Join(currentDirectory, GitDirectoryName))
		if statError == nil && info.IsDir() {
			return currentDirectory, nil
		}
		parentDirectory := filepath.Dir(currentDirectory)
		if parentDirectory == currentDirectory {
			return "", errGitDirectoryNotFound
		}
		currentDirectory = parentDirectory
	}
}
