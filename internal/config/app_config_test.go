package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tyemirov/ctree/internal/utils"
)

type configTestCase struct {
	name          string
	globalContent string
	localContent  string
	explicitPath  string
	environment   map[string]string
	expectFormat  string
	expectDepth   *int
	expectAll     *bool
	expectSummary *bool
	expectTokens  *bool
	expectModel   string
}

func boolPointer(value bool) *bool {
	pointer := value
	return &pointer
}

func intPointer(value int) *int {
	pointer := value
	return &pointer
}

func TestLoadApplicationConfigurationMergesSources(t *testing.T) {
	testCases := []configTestCase{
		{
			name:          "local_overrides_global",
			globalContent: "tree:\n  format: json\n  depth: 2\n  summary: false\n",
			localContent:  "tree:\n  format: XML\n  tokens:\n    enabled: true\n    model: custom\n",
			expectFormat:  "xml",
			expectDepth:   intPointer(2),
			expectSummary: boolPointer(false),
			expectTokens:  boolPointer(true),
			expectModel:   "custom",
		},
		{
			name:          "explicit_path_replaces_local",
			globalContent: "tree:\n  format: json\n",
			localContent:  "tree:\n  format: yaml\n",
			explicitPath:  "custom.conf",
			expectFormat:  "raw",
			expectAll:     boolPointer(true),
		},
		{
			name:          "environment_overrides_files",
			localContent:  "tree:\n  depth: 1\n  all: false\n",
			environment:   map[string]string{"CTREE_TREE_DEPTH": "4", "CTREE_TREE_ALL": "true"},
			expectDepth:   intPointer(4),
			expectAll:     boolPointer(true),
			expectSummary: nil,
		},
		{
			name: "nothing_configured",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			homeDir := t.TempDir()
			workingDir := t.TempDir()
			configDir := filepath.Join(homeDir, utils.GlobalConfigDirectoryName)
			if err := os.MkdirAll(configDir, 0o755); err != nil {
				t.Fatalf("create config dir: %v", err)
			}
			if testCase.globalContent != "" {
				globalPath := filepath.Join(configDir, utils.GlobalConfigFileName)
				if err := os.WriteFile(globalPath, []byte(testCase.globalContent), 0o600); err != nil {
					t.Fatalf("write global config: %v", err)
				}
			}
			if testCase.localContent != "" {
				localPath := filepath.Join(workingDir, utils.ConfigFileName)
				if err := os.WriteFile(localPath, []byte(testCase.localContent), 0o600); err != nil {
					t.Fatalf("write local config: %v", err)
				}
			}
			if testCase.explicitPath != "" {
				target := filepath.Join(workingDir, testCase.explicitPath)
				if err := os.WriteFile(target, []byte("tree:\n  format: raw\n  all: true\n"), 0o600); err != nil {
					t.Fatalf("write explicit config: %v", err)
				}
			}

			t.Setenv("HOME", homeDir)
			t.Setenv("USERPROFILE", homeDir)
			for key, value := range testCase.environment {
				t.Setenv(key, value)
			}

			loadedConfig, err := LoadApplicationConfiguration(LoadOptions{
				WorkingDirectory: workingDir,
				ExplicitFilePath: testCase.explicitPath,
			})
			if err != nil {
				t.Fatalf("LoadApplicationConfiguration error: %v", err)
			}

			tree := loadedConfig.Tree
			if tree.Format != testCase.expectFormat {
				t.Fatalf("expected format %q, got %q", testCase.expectFormat, tree.Format)
			}
			assertIntPointer(t, "depth", tree.Depth, testCase.expectDepth)
			assertBoolPointer(t, "all", tree.All, testCase.expectAll)
			assertBoolPointer(t, "summary", tree.Summary, testCase.expectSummary)
			assertBoolPointer(t, "tokens.enabled", tree.Tokens.Enabled, testCase.expectTokens)
			if tree.Tokens.Model != testCase.expectModel {
				t.Fatalf("expected model %q, got %q", testCase.expectModel, tree.Tokens.Model)
			}
		})
	}
}

func TestLoadApplicationConfigurationRejectsDirectory(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	workingDir := t.TempDir()
	if err := os.Mkdir(filepath.Join(workingDir, utils.ConfigFileName), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if _, err := LoadApplicationConfiguration(LoadOptions{WorkingDirectory: workingDir}); err == nil {
		t.Fatalf("expected error for directory configuration path")
	}
}

func TestLoadApplicationConfigurationRejectsMalformedYAML(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	workingDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(workingDir, utils.ConfigFileName), []byte("tree: [unterminated"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadApplicationConfiguration(LoadOptions{WorkingDirectory: workingDir}); err == nil {
		t.Fatalf("expected error for malformed configuration")
	}
}

func assertBoolPointer(t *testing.T, label string, actual, expected *bool) {
	t.Helper()
	if expected == nil {
		if actual != nil {
			t.Fatalf("expected no %s override, got %v", label, *actual)
		}
		return
	}
	if actual == nil || *actual != *expected {
		t.Fatalf("unexpected %s value: %v", label, actual)
	}
}

func assertIntPointer(t *testing.T, label string, actual, expected *int) {
	t.Helper()
	if expected == nil {
		if actual != nil {
			t.Fatalf("expected no %s override, got %d", label, *actual)
		}
		return
	}
	if actual == nil || *actual != *expected {
		t.Fatalf("unexpected %s value: %v", label, actual)
	}
}
