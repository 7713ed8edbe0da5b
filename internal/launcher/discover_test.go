package launcher

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
)

func memoryFileSystem(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fileSystem := afero.NewMemMapFs()
	for path, content := range files {
		if err := afero.WriteFile(fileSystem, filepath.FromSlash(path), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	return fileSystem
}

func TestFindKeyFile(t *testing.T) {
	t.Parallel()

	fileSystem := memoryFileSystem(t, map[string]string{
		"/work/project/key.go":             "package main",
		"/work/project/service/api/x.go":   "package api",
		"/work/project/tools/key.go/x.txt": "a directory named like a key file",
	})
	testCases := []struct {
		name          string
		start         string
		keyFileName   string
		expectedPath  string
		expectMissing bool
	}{
		{name: "in_start_directory", start: "/work/project", keyFileName: "key.go", expectedPath: "/work/project/key.go"},
		{name: "in_ancestor", start: "/work/project/service/api", keyFileName: "key.go", expectedPath: "/work/project/key.go"},
		{name: "directories_are_skipped", start: "/work/project/tools", keyFileName: "key.go", expectedPath: "/work/project/key.go"},
		{name: "custom_name_missing", start: "/work/project", keyFileName: "tasks.go", expectMissing: true},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			located, findError := FindKeyFile(fileSystem, filepath.FromSlash(testCase.start), testCase.keyFileName)
			if testCase.expectMissing {
				if !errors.Is(findError, ErrKeyFileNotFound) {
					t.Fatalf("expected ErrKeyFileNotFound, got %v", findError)
				}
				return
			}
			if findError != nil {
				t.Fatalf("unexpected error: %v", findError)
			}
			if located != filepath.FromSlash(testCase.expectedPath) {
				t.Fatalf("expected %s, got %s", testCase.expectedPath, located)
			}
		})
	}
}

func TestLoadModule(t *testing.T) {
	t.Parallel()

	fileSystem := memoryFileSystem(t, map[string]string{
		"/ready/go.mod":        "module example.com/ready\n\ngo 1.24\n\nrequire github.com/temirov/projectkey v0.1.0\n",
		"/ready/key.go":        "package main",
		"/bare/go.mod":         "module example.com/bare\n\ngo 1.24\n",
		"/bare/nested/key.go":  "package main",
		"/self/go.mod":         "module github.com/temirov/projectkey\n\ngo 1.24\n",
		"/broken/go.mod":       "module\n",
		"/nomodule/sub/key.go": "package main",
	})
	testCases := []struct {
		name              string
		keyDirectory      string
		expectedPath      string
		expectedDirectory string
		expectRequirement bool
		expectedError     error
		expectParseError  bool
	}{
		{name: "requires_projectkey", keyDirectory: "/ready", expectedPath: "example.com/ready", expectedDirectory: "/ready", expectRequirement: true},
		{name: "module_in_parent_without_requirement", keyDirectory: "/bare/nested", expectedPath: "example.com/bare", expectedDirectory: "/bare"},
		{name: "projectkey_itself", keyDirectory: "/self", expectedPath: "github.com/temirov/projectkey", expectedDirectory: "/self", expectRequirement: true},
		{name: "no_module", keyDirectory: "/nomodule/sub", expectedError: ErrModuleNotFound},
		{name: "unparsable_module", keyDirectory: "/broken", expectParseError: true},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			module, loadError := LoadModule(fileSystem, filepath.FromSlash(testCase.keyDirectory))
			if testCase.expectedError != nil {
				if !errors.Is(loadError, testCase.expectedError) {
					t.Fatalf("expected %v, got %v", testCase.expectedError, loadError)
				}
				return
			}
			if testCase.expectParseError {
				if loadError == nil {
					t.Fatalf("expected parse error")
				}
				return
			}
			if loadError != nil {
				t.Fatalf("unexpected error: %v", loadError)
			}
			if module.Path != testCase.expectedPath || module.Directory != filepath.FromSlash(testCase.expectedDirectory) {
				t.Fatalf("unexpected module %+v", module)
			}
			if module.RequiresProjectKey != testCase.expectRequirement {
				t.Fatalf("expected requirement %t, got %t", testCase.expectRequirement, module.RequiresProjectKey)
			}
			requirementError := module.RequireProjectKey()
			if testCase.expectRequirement != (requirementError == nil) {
				t.Fatalf("unexpected requirement error %v", requirementError)
			}
			if requirementError != nil && !errors.Is(requirementError, ErrMissingRequirement) {
				t.Fatalf("expected ErrMissingRequirement, got %v", requirementError)
			}
		})
	}
}
