package scan_test

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/tyemirov/ctree/internal/scan"
	"github.com/tyemirov/ctree/internal/types"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte("data"), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func mustMkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
}

// exampleTree creates root/a.txt, root/.hidden/x.txt and root/sub/b.txt.
func exampleTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"))
	writeFile(t, filepath.Join(root, ".hidden", "x.txt"))
	writeFile(t, filepath.Join(root, "sub", "b.txt"))
	return root
}

func itemPaths(t *testing.T, entries []types.ScanEntry) []string {
	t.Helper()
	paths := []string{}
	for _, entry := range entries {
		if entry.IsError() {
			t.Fatalf("unexpected error entry: %v", entry.Err)
		}
		paths = append(paths, entry.Item.Path)
	}
	return paths
}

func TestMakeExampleScenarios(t *testing.T) {
	root := exampleTree(t)

	testCases := []struct {
		name       string
		maxDepth   int
		showHidden bool
		expected   []string
	}{
		{
			name:       "unlimited_without_hidden",
			maxDepth:   scan.UnlimitedDepth,
			showHidden: false,
			expected:   []string{filepath.Join(root, "a.txt"), filepath.Join(root, "sub", "b.txt")},
		},
		{
			name:       "unlimited_with_hidden",
			maxDepth:   scan.UnlimitedDepth,
			showHidden: true,
			expected: []string{
				filepath.Join(root, ".hidden", "x.txt"),
				filepath.Join(root, "a.txt"),
				filepath.Join(root, "sub", "b.txt"),
			},
		},
		{
			name:       "depth_one_descends_into_direct_children",
			maxDepth:   1,
			showHidden: true,
			expected: []string{
				filepath.Join(root, ".hidden", "x.txt"),
				filepath.Join(root, "a.txt"),
				filepath.Join(root, "sub", "b.txt"),
			},
		},
		{
			name:       "depth_zero_does_not_descend",
			maxDepth:   0,
			showHidden: true,
			expected:   []string{filepath.Join(root, "a.txt")},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			treeBuilder := scan.NewTreeBuilder(testCase.maxDepth, root, testCase.showHidden)
			actual := itemPaths(t, treeBuilder.Make(root))
			if !reflect.DeepEqual(actual, testCase.expected) {
				t.Fatalf("unexpected items\n got: %v\nwant: %v", actual, testCase.expected)
			}
		})
	}
}

func TestMakeNonexistentDirectoryYieldsNothing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nonexistent")
	treeBuilder := scan.NewTreeBuilder(scan.UnlimitedDepth, missing, true)
	if entries := treeBuilder.Make(missing); len(entries) != 0 {
		t.Fatalf("expected empty result, got %v", entries)
	}
}

func TestMakePrunesHiddenDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".git", "objects", "deep.txt"))
	writeFile(t, filepath.Join(root, "src", ".env"))
	writeFile(t, filepath.Join(root, "src", "main.go"))

	treeBuilder := scan.NewTreeBuilder(scan.UnlimitedDepth, root, false)
	for _, path := range itemPaths(t, treeBuilder.Make(root)) {
		relative, _ := filepath.Rel(root, path)
		for _, component := range strings.Split(relative, string(filepath.Separator)) {
			if strings.HasPrefix(component, ".") {
				t.Fatalf("hidden component emitted: %s", path)
			}
		}
	}
}

func TestMakeDepthBound(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "f0.txt"))
	writeFile(t, filepath.Join(root, "d0", "f1.txt"))
	writeFile(t, filepath.Join(root, "d0", "d1", "f2.txt"))
	writeFile(t, filepath.Join(root, "d0", "d1", "d2", "f3.txt"))

	for maxDepth := 0; maxDepth <= 4; maxDepth++ {
		treeBuilder := scan.NewTreeBuilder(maxDepth, root, false)
		paths := itemPaths(t, treeBuilder.Make(root))
		for _, path := range paths {
			if depth := treeBuilder.Depth(path); depth > maxDepth {
				t.Fatalf("max depth %d emitted %s at depth %d", maxDepth, path, depth)
			}
		}
		expectedCount := maxDepth + 1
		if expectedCount > 4 {
			expectedCount = 4
		}
		if len(paths) != expectedCount {
			t.Fatalf("max depth %d: expected %d files, got %v", maxDepth, expectedCount, paths)
		}
	}

	unlimited := scan.NewTreeBuilder(scan.UnlimitedDepth, root, false)
	if paths := itemPaths(t, unlimited.Make(root)); len(paths) != 4 {
		t.Fatalf("unlimited scan should reach every file, got %v", paths)
	}
}

func TestMakeSkipsSymlinks(t *testing.T) {
	root := t.TempDir()
	target := t.TempDir()
	writeFile(t, filepath.Join(target, "outside.txt"))
	writeFile(t, filepath.Join(root, "inside.txt"))
	if err := os.Symlink(target, filepath.Join(root, "linked-dir")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	if err := os.Symlink(filepath.Join(root, "inside.txt"), filepath.Join(root, "linked-file")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	treeBuilder := scan.NewTreeBuilder(scan.UnlimitedDepth, root, true)
	paths := itemPaths(t, treeBuilder.Make(root))
	expected := []string{filepath.Join(root, "inside.txt")}
	if !reflect.DeepEqual(paths, expected) {
		t.Fatalf("symlinks must be skipped, got %v", paths)
	}
}

func TestMakeEntryErrorKeepsSiblings(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.txt"))

	reader := func(directory string) ([]fs.DirEntry, error) {
		entries, err := os.ReadDir(directory)
		if err != nil {
			return nil, err
		}
		return append([]fs.DirEntry{failingEntry{name: "a.txt"}}, entries...), nil
	}

	treeBuilder := scan.NewTreeBuilder(scan.UnlimitedDepth, root, false, scan.WithDirectoryReader(reader))
	entries := treeBuilder.Make(root)
	if len(entries) != 2 {
		t.Fatalf("expected error and item, got %v", entries)
	}
	if !entries[0].IsError() || !errors.Is(entries[0].Err, errEntryVanished) {
		t.Fatalf("expected first entry to be the classification error, got %+v", entries[0])
	}
	if entries[1].IsError() || entries[1].Item.Path != filepath.Join(root, "b.txt") {
		t.Fatalf("expected sibling item, got %+v", entries[1])
	}
}

func TestMakeUnreadableSubdirectoryYieldsNothing(t *testing.T) {
	root := t.TempDir()
	locked := filepath.Join(root, "locked")
	writeFile(t, filepath.Join(locked, "secret.txt"))
	writeFile(t, filepath.Join(root, "open.txt"))

	reader := func(directory string) ([]fs.DirEntry, error) {
		if directory == locked {
			return nil, fs.ErrPermission
		}
		return os.ReadDir(directory)
	}

	treeBuilder := scan.NewTreeBuilder(scan.UnlimitedDepth, root, false, scan.WithDirectoryReader(reader))
	paths := itemPaths(t, treeBuilder.Make(root))
	expected := []string{filepath.Join(root, "open.txt")}
	if !reflect.DeepEqual(paths, expected) {
		t.Fatalf("unexpected items: %v", paths)
	}
}

func TestMakeUnreadableSubdirectoryOnDisk(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks are bypassed for root")
	}
	root := t.TempDir()
	locked := filepath.Join(root, "locked")
	writeFile(t, filepath.Join(locked, "secret.txt"))
	writeFile(t, filepath.Join(root, "open.txt"))
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	treeBuilder := scan.NewTreeBuilder(scan.UnlimitedDepth, root, false)
	entries := treeBuilder.Make(root)
	paths := itemPaths(t, entries)
	if len(paths) != 1 || paths[0] != filepath.Join(root, "open.txt") {
		t.Fatalf("unexpected items: %v", paths)
	}
}

func TestMakeIsIdempotent(t *testing.T) {
	root := exampleTree(t)
	treeBuilder := scan.NewTreeBuilder(scan.UnlimitedDepth, root, true)
	first := itemPaths(t, treeBuilder.Make(root))
	second := itemPaths(t, treeBuilder.Make(root))
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("scans differ:\n%v\n%v", first, second)
	}
}

func TestMakeRelativeRoot(t *testing.T) {
	root := exampleTree(t)
	chdirForTest(t, root)

	treeBuilder := scan.NewTreeBuilder(0, ".", true)
	paths := itemPaths(t, treeBuilder.Make("."))
	if !reflect.DeepEqual(paths, []string{"a.txt"}) {
		t.Fatalf("unexpected relative scan: %v", paths)
	}
}

func TestWalkMatchesMake(t *testing.T) {
	root := exampleTree(t)
	writeFile(t, filepath.Join(root, "sub", "nested", "c.txt"))
	writeFile(t, filepath.Join(root, "sub", "z.txt"))
	writeFile(t, filepath.Join(root, "z.txt"))

	for _, maxDepth := range []int{scan.UnlimitedDepth, 0, 1, 2, 3} {
		for _, showHidden := range []bool{false, true} {
			treeBuilder := scan.NewTreeBuilder(maxDepth, root, showHidden)
			expected := itemPaths(t, treeBuilder.Make(root))

			var walked []types.ScanEntry
			walkError := treeBuilder.Walk(context.Background(), root, func(entry types.ScanEntry) error {
				walked = append(walked, entry)
				return nil
			})
			if walkError != nil {
				t.Fatalf("walk: %v", walkError)
			}
			if actual := itemPaths(t, walked); !reflect.DeepEqual(actual, expected) {
				t.Fatalf("depth %d hidden %t: walk %v, make %v", maxDepth, showHidden, actual, expected)
			}
		}
	}
}

func TestWalkStopsOnVisitError(t *testing.T) {
	root := exampleTree(t)
	stopError := errors.New("stop")
	visited := 0
	treeBuilder := scan.NewTreeBuilder(scan.UnlimitedDepth, root, true)
	walkError := treeBuilder.Walk(context.Background(), root, func(types.ScanEntry) error {
		visited++
		return stopError
	})
	if !errors.Is(walkError, stopError) {
		t.Fatalf("expected stop error, got %v", walkError)
	}
	if visited != 1 {
		t.Fatalf("expected one visit, got %d", visited)
	}
}

func TestWalkHonoursCancellation(t *testing.T) {
	root := exampleTree(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	treeBuilder := scan.NewTreeBuilder(scan.UnlimitedDepth, root, true)
	walkError := treeBuilder.Walk(ctx, root, func(types.ScanEntry) error { return nil })
	if !errors.Is(walkError, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", walkError)
	}
}

// chdirForTest changes the working directory for the duration of the test,
// mirroring testing.T.Chdir (Go 1.24+) for older toolchains.
func chdirForTest(t *testing.T, dir string) {
	t.Helper()
	previous, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir %s: %v", dir, err)
	}
	t.Setenv("PWD", dir)
	t.Cleanup(func() {
		if err := os.Chdir(previous); err != nil {
			t.Fatalf("restore working directory %s: %v", previous, err)
		}
	})
}
