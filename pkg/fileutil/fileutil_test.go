package fileutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSearchPathsOptional(t *testing.T) {
	tmpDir := t.TempDir()

	file1 := filepath.Join(tmpDir, "file1.yaml")
	file2 := filepath.Join(tmpDir, "file2.yaml")
	for _, f := range []string{file1, file2} {
		if err := os.WriteFile(f, []byte("projects: {}"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
	}
	subDir := filepath.Join(tmpDir, "projects.yaml")
	if err := os.Mkdir(subDir, 0755); err != nil {
		t.Fatalf("Failed to create test directory: %v", err)
	}

	tests := []struct {
		name  string
		paths []string
		want  string
	}{
		{"finds existing file", []string{file1}, file1},
		{"keeps search order", []string{file2, file1}, file2},
		{"skips missing files", []string{filepath.Join(tmpDir, "nonexistent.yaml"), file1}, file1},
		{"skips directories", []string{subDir, file2}, file2},
		{"returns empty string when not found", []string{filepath.Join(tmpDir, "nonexistent.yaml")}, ""},
		{"handles empty path list", []string{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SearchPathsOptional(tt.paths)
			if got != tt.want {
				t.Errorf("SearchPathsOptional() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultConfigPaths(t *testing.T) {
	paths := DefaultConfigPaths("projects.yaml")

	if len(paths) < 3 {
		t.Fatalf("DefaultConfigPaths() returned %d paths, want at least 3", len(paths))
	}

	for i, path := range paths {
		if filepath.Base(path) != "projects.yaml" {
			t.Errorf("DefaultConfigPaths()[%d] = %v, should end in projects.yaml", i, path)
		}
	}

	if paths[0] != "projects.yaml" {
		t.Errorf("DefaultConfigPaths()[0] should be the working directory, got %v", paths[0])
	}

	last := paths[len(paths)-1]
	if !strings.HasPrefix(last, SystemConfigDir) {
		t.Errorf("Last search path should start with %s, got %v", SystemConfigDir, last)
	}
}

func TestFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "file.txt")
	if err := os.WriteFile(file, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if !FileExists(file) {
		t.Error("FileExists() = false for a regular file")
	}
	if FileExists(tmpDir) {
		t.Error("FileExists() = true for a directory")
	}
	if FileExists(filepath.Join(tmpDir, "missing")) {
		t.Error("FileExists() = true for a missing path")
	}
}
